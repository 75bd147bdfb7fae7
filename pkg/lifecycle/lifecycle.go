// Package lifecycle coordinates startup and shutdown of long-lived systems.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator manages startup and shutdown hooks for the application lifecycle.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
	startupWg  sync.WaitGroup
	shutdownWg sync.WaitGroup
	ready      bool
	failed     []string
	mu         sync.RWMutex
}

// New creates a Coordinator with a cancellable context.
func New(logger *zap.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With(zap.String("system", "lifecycle")),
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a named hook to run concurrently during startup.
// A hook that returns an error keeps the coordinator from reporting ready.
func (c *Coordinator) OnStartup(name string, fn func() error) {
	c.startupWg.Go(func() {
		start := time.Now()
		if err := fn(); err != nil {
			c.logger.Error("startup hook failed", zap.String("hook", name), zap.Error(err))
			c.mu.Lock()
			c.failed = append(c.failed, name)
			c.mu.Unlock()
			return
		}
		c.logger.Debug("startup hook complete", zap.String("hook", name), zap.Duration("took", time.Since(start)))
	})
}

// OnShutdown registers a function to run concurrently during shutdown.
// Shutdown hooks should block on <-c.Context().Done() before executing cleanup.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(fn)
}

// Ready returns true after all startup hooks have completed without error.
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Failed returns the names of startup hooks that reported an error.
func (c *Coordinator) Failed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.failed))
	copy(out, c.failed)
	return out
}

// WaitForStartup blocks until all startup hooks have completed and sets the ready flag
// when none of them failed.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	c.mu.Lock()
	c.ready = len(c.failed) == 0
	c.mu.Unlock()
}

// Shutdown cancels the context and waits for shutdown hooks to complete
// within the given timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
