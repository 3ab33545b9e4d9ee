// Package app holds the client handles the query path depends on and the
// one-shot startup that creates them.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/circulx/products-rag/internal/rag"
	"github.com/circulx/products-rag/internal/vectorstore"
)

// Status is the readiness of the service.
type Status int

const (
	StatusUninitialized Status = iota
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is a readiness snapshot. Reason is set only for StatusFailed.
type State struct {
	Status Status
	Reason string
}

// Handles are the long-lived clients built at startup. They are never
// mutated after publication and are safe for concurrent use.
type Handles struct {
	Store   vectorstore.Store
	Model   rag.Model
	Service *rag.Service
	// Closers are released by App.Close in order.
	Closers []func() error
}

// Connector builds the handles. It is called at most once.
type Connector func(ctx context.Context) (*Handles, error)

type snapshot struct {
	state   State
	handles *Handles
}

// App gates the query path on a successful startup.
type App struct {
	connect Connector
	log     *zap.Logger
	once    sync.Once
	current atomic.Pointer[snapshot]

	// mu orders handle publication against Close.
	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

func New(connect Connector, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{connect: connect, log: log}
	a.current.Store(&snapshot{state: State{Status: StatusUninitialized}})
	return a
}

// Start runs Initialize in the background. Close cancels it and waits for it
// to return.
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel, a.done = cancel, done
	a.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		a.Initialize(ctx)
	}()
}

// Initialize connects the external clients once. A failure is logged and
// recorded as StatusFailed; the process keeps running and there is no retry.
// Handles built after Close has been called are released, not published.
func (a *App) Initialize(ctx context.Context) {
	a.once.Do(func() {
		a.log.Info("initializing clients")

		h, err := a.connect(ctx)
		if err == nil && (h == nil || h.Service == nil) {
			err = errors.New("connector returned no service")
		}
		if err != nil {
			a.log.Error("error during initialization", zap.Error(err))
			a.current.Store(&snapshot{state: State{Status: StatusFailed, Reason: err.Error()}})
			return
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.closed {
			if err := closeAll(h.Closers); err != nil {
				a.log.Warn("releasing clients after shutdown", zap.Error(err))
			}
			a.current.Store(&snapshot{state: State{Status: StatusFailed, Reason: "shut down during startup"}})
			return
		}

		a.current.Store(&snapshot{state: State{Status: StatusReady}, handles: h})
		a.log.Info("all systems ready")
	})
}

// State returns the current readiness.
func (a *App) State() State {
	return a.current.Load().state
}

// Service returns the query pipeline, or false until startup has succeeded.
func (a *App) Service() (*rag.Service, bool) {
	s := a.current.Load()
	if s.state.Status != StatusReady || s.handles == nil {
		return nil, false
	}
	return s.handles.Service, true
}

// Close cancels a running startup, waits for it, and releases the handles.
// Calls after the first are no-ops.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s := a.current.Load()
	if s.handles == nil {
		return nil
	}
	return closeAll(s.handles.Closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for _, c := range closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
