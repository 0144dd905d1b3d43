package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/pkg/errors"
)

// popWait bounds a single BLPOP so Pop can notice context cancellation; the
// consumer loop turns the ok=false wake into another blocking wait.
const popWait = 5 * time.Second

type redisQueue struct {
	client *redis.Client
}

func NewRedis(options *redis.Options) (Queue, error) {
	client := redis.NewClient(options)

	if _, err := client.Ping().Result(); err != nil {
		return nil, err
	}

	return &redisQueue{client: client}, nil
}

func (r *redisQueue) Push(ctx context.Context, queue string, data interface{}) error {
	payload, err := json.Marshal(data)

	if err != nil {
		return errors.Wrapf(err, "unable to marshal message for '%s'", queue)
	}

	if err = r.client.RPush(queue, payload).Err(); err != nil {
		return errors.Wrapf(err, "unable to push to '%s'", queue)
	}

	return nil
}

func (r *redisQueue) Pop(ctx context.Context, queue string, data interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	result, err := r.client.BLPop(popWait, queue).Result()

	if err == redis.Nil {
		return false, nil
	}

	if err != nil {
		return false, errors.Wrapf(err, "unable to pop from '%s'", queue)
	}

	// BLPOP replies [list, payload]
	if len(result) < 2 {
		return false, errors.Errorf("malformed BLPOP reply from '%s'", queue)
	}

	if err = json.Unmarshal([]byte(result[1]), data); err != nil {
		return false, errors.Wrapf(err, "unable to decode message from '%s'", queue)
	}

	return true, nil
}

func (r *redisQueue) Len(ctx context.Context, queue string) (int64, error) {
	return r.client.LLen(queue).Result()
}
