package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger        *logger.Logger
	Redis         pinger
	PubSub        pinger
	BigQuery      pinger
	EmailConsumer consumer
	AuditConsumer consumer
}

// Service runs the order event consumers side by side. Either consumer
// stopping with an error stops the other.
type Service struct {
	logg  *logger.Logger
	deps  []namedPinger
	email consumer
	audit consumer
}

type namedPinger struct {
	name string
	dep  pinger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.BigQuery == nil {
		return nil, errors.New("bigquery client is required")
	}
	if params.EmailConsumer == nil {
		return nil, errors.New("order email consumer is required")
	}
	if params.AuditConsumer == nil {
		return nil, errors.New("order audit consumer is required")
	}
	return &Service{
		logg: params.Logger,
		deps: []namedPinger{
			{name: "redis", dep: params.Redis},
			{name: "pubsub", dep: params.PubSub},
			{name: "bigquery", dep: params.BigQuery},
		},
		email: params.EmailConsumer,
		audit: params.AuditConsumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, d := range s.deps {
		if err := d.dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", d.name), err)
			return fmt.Errorf("%s ping failed: %w", d.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.runConsumer(groupCtx, "order-email", s.email) })
	group.Go(func() error { return s.runConsumer(groupCtx, "order-audit", s.audit) })
	err := group.Wait()
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Service) runConsumer(ctx context.Context, name string, c consumer) error {
	err := c.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(s.logg.WithField(ctx, "consumer", name), "consumer stopped unexpectedly", err)
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "consumer", name), "consumer stopped")
	return nil
}
