package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubConsumer struct {
	err     error
	blocked bool
}

func (s *stubConsumer) Run(ctx context.Context) error {
	if s.blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func testParams(email, audit consumer) ServiceParams {
	return ServiceParams{
		Logger:        logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard}),
		Redis:         stubPinger{},
		PubSub:        stubPinger{},
		BigQuery:      stubPinger{},
		EmailConsumer: email,
		AuditConsumer: audit,
	}
}

func TestNewServiceRequiresConsumers(t *testing.T) {
	_, err := NewService(testParams(nil, &stubConsumer{}))
	assert.Error(t, err)
	_, err = NewService(testParams(&stubConsumer{}, nil))
	assert.Error(t, err)
}

func TestRunFailsWhenDependencyDown(t *testing.T) {
	params := testParams(&stubConsumer{blocked: true}, &stubConsumer{blocked: true})
	params.BigQuery = stubPinger{err: errors.New("no dataset")}
	svc, err := NewService(params)
	require.NoError(t, err)

	err = svc.Run(context.Background())
	assert.ErrorContains(t, err, "bigquery ping failed")
}

func TestRunStopsBothConsumersOnFailure(t *testing.T) {
	svc, err := NewService(testParams(&stubConsumer{blocked: true}, &stubConsumer{err: errors.New("receive failed")}))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.ErrorContains(t, err, "receive failed")
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	svc, err := NewService(testParams(&stubConsumer{blocked: true}, &stubConsumer{blocked: true}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
}
