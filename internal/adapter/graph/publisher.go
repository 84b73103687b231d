package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-api/internal/adapter/cube"
)

// ContentType of published graphs.
const ContentType = "image/png"

// Store saves an object and returns the URL it can be fetched from.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Publisher renders series and uploads them under random keys.
type Publisher struct {
	store      Store
	maxRetries uint64
	newBackOff func() backoff.BackOff
	log        logrus.FieldLogger
}

// NewPublisher creates a publisher writing to store, retrying failed uploads up to maxRetries times.
func NewPublisher(store Store, maxRetries uint64, log logrus.FieldLogger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{
		store:      store,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
		log: log,
	}
}

// Publish renders series as a PNG and returns its URL.
func (p *Publisher) Publish(ctx context.Context, series cube.Cube) (string, error) {
	img, err := RenderPNG(series)
	if err != nil {
		return "", err
	}

	key := uuid.New().String() + ".png"
	var url string
	err = backoff.RetryNotify(
		func() error {
			var err error
			url, err = p.store.Put(ctx, key, img, ContentType)
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx),
		func(err error, d time.Duration) {
			p.log.WithError(err).WithField("key", key).Warnf("graph upload failed, retrying in %v", d)
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload graph %s: %w", key, err)
	}
	return url, nil
}
