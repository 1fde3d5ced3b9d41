// Package server runs the long-lived parts of a process (tick loop,
// listeners) under one context and tears them down in reverse order.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service is a long-running component.
type Service interface {
	// Start runs the service until ctx ends, Stop is called, or it fails.
	Start(ctx context.Context) error
	// Stop asks a running service to return from Start.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
// A nil StopFn is allowed for services that exit when ctx ends.
type FuncService struct {
	StartFn func(ctx context.Context) error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start(ctx context.Context) error { return f.StartFn(ctx) }

// Stop calls the underlying stop function if there is one.
func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

// Lifecycle starts services together and stops them in reverse order of
// registration.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every service and blocks until ctx is cancelled, SIGINT or
// SIGTERM arrives, or a service fails. A service that returns nil on its own
// does not bring the others down.
//
// Postcondition: every service has been stopped; the first service failure
// is returned.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, ns := range services {
		g.Go(func() error {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			err := ns.service.Start(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				return fmt.Errorf("service %s: %w", ns.name, err)
			}
			return nil
		})
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	g.Go(func() error {
		<-gctx.Done()
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(gctx)))
		shutdown(l.logger, services)
		return nil
	})

	err := g.Wait()
	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return err
}

func shutdown(logger *zap.Logger, services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		logger.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()
		logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}
