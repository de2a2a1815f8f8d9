package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/logger"
)

// Source is one way of producing an aggregate value.
type Source[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// Recoverable reports whether a failed source should give way to the next
// one. Missing endpoints, server faults, network failures and malformed
// payloads fall through; auth, validation and cancellation do not.
func Recoverable(err error) bool {
	switch apiclient.KindOf(err) {
	case apiclient.KindNotFound, apiclient.KindServer, apiclient.KindNetwork:
		return true
	case apiclient.KindUnauthorized, apiclient.KindValidation, apiclient.KindCanceled:
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// FirstSuccess tries sources in rank order and returns the first value
// produced along with the name of the source that produced it. When every
// source fails the last error is returned.
func FirstSuccess[T any](ctx context.Context, log *zap.Logger, op string, sources ...Source[T]) (T, string, error) {
	var zero T
	log = logger.OrNop(log)
	if len(sources) == 0 {
		return zero, "", fmt.Errorf("%s: no sources", op)
	}
	var lastErr error
	for i, src := range sources {
		v, err := src.Fetch(ctx)
		if err == nil {
			if i > 0 {
				log.Debug("aggregate served by fallback", zap.String("op", op), zap.String("source", src.Name))
			}
			return v, src.Name, nil
		}
		lastErr = err
		if !Recoverable(err) || ctx.Err() != nil {
			return zero, src.Name, err
		}
		if i < len(sources)-1 {
			log.Debug("aggregate source failed, trying next",
				zap.String("op", op),
				zap.String("source", src.Name),
				zap.Error(err),
			)
		}
	}
	return zero, sources[len(sources)-1].Name, lastErr
}
