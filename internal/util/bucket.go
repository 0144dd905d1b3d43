package util

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"

	"vodforge/internal/storage"
)

func Download(ctx context.Context, bucket storage.Bucket, key string, path string) error {
	log.Debugf("download '%s' to '%s'", key, path)

	data, err := bucket.Get(ctx, key)

	if err != nil {
		return err
	}

	return os.WriteFile(path, data, os.ModePerm)
}

func Upload(ctx context.Context, bucket storage.Bucket, key string, path string, contentType string) error {
	log.Debugf("upload '%s' to '%s'", path, key)

	data, err := os.ReadFile(path)

	if err != nil {
		return err
	}

	return bucket.Store(ctx, key, data, contentType)
}
