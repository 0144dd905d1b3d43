package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

type rabbitmq struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitMQ opens a channel and declares the job queue as durable so
// pending jobs survive a broker restart.
func NewRabbitMQ(url string) (Queue, error) {
	conn, err := amqp.Dial(url)

	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()

	if err != nil {
		return nil, err
	}

	if _, err = ch.QueueDeclare(JobQueue, true, false, false, false, nil); err != nil {
		return nil, err
	}

	return &rabbitmq{conn: conn, ch: ch}, nil
}

func (r *rabbitmq) Push(ctx context.Context, queue string, data interface{}) error {
	payload, err := json.Marshal(data)

	if err != nil {
		return errors.Wrapf(err, "unable to marshal message for '%s'", queue)
	}

	return r.ch.Publish("", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
}

func (r *rabbitmq) Pop(ctx context.Context, queue string, data interface{}) (bool, error) {
	deadline := time.Now().Add(popWait)

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		msg, ok, err := r.ch.Get(queue, true)

		if err != nil {
			return false, errors.Wrapf(err, "unable to pop from '%s'", queue)
		}

		if ok {
			if err = json.Unmarshal(msg.Body, data); err != nil {
				return false, errors.Wrapf(err, "unable to decode message from '%s'", queue)
			}

			return true, nil
		}

		if time.Now().After(deadline) {
			return false, nil
		}

		time.Sleep(500 * time.Millisecond)
	}
}

func (r *rabbitmq) Len(ctx context.Context, queue string) (int64, error) {
	state, err := r.ch.QueueInspect(queue)

	if err != nil {
		return 0, errors.Wrapf(err, "unable to inspect '%s'", queue)
	}

	return int64(state.Messages), nil
}
