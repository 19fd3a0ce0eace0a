package switcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	EventBuffer   int
	WorkBuffer    int
	ProgressRate  float64
	ShutdownGrace time.Duration
	ShowStatus    bool
	Remote        string
	Keys          *KeyMap
}

const (
	DefaultEventBuffer   = 256
	DefaultWorkBuffer    = 8
	DefaultShutdownGrace = 30 * time.Second
)

// Producer is an extra source of events, such as the refs watcher. It runs
// alongside the engine and must return once ctx is done.
type Producer func(ctx context.Context, events chan<- Event) error

// Engine wires the listener, worker and reactor together.
type Engine struct {
	opts      Options
	open      Opener
	keys      KeySource
	render    Renderer
	producers []Producer
	log       zerolog.Logger
}

// New creates an Engine.
func New(open Opener, keys KeySource, render Renderer, opts Options, logger zerolog.Logger) *Engine {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.WorkBuffer <= 0 {
		opts.WorkBuffer = DefaultWorkBuffer
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = DefaultShutdownGrace
	}
	if opts.Keys == nil {
		km := DefaultKeyMap()
		opts.Keys = &km
	}

	return &Engine{
		opts:   opts,
		open:   open,
		keys:   keys,
		render: render,
		log:    logger.With().Str("component", "engine").Logger(),
	}
}

// AddProducer registers an extra event producer. Call before Run.
func (e *Engine) AddProducer(p Producer) {
	e.producers = append(e.producers, p)
}

// Run blocks until the session ends. Shutdown stops the listener and the
// reactor at once and cancels pending work; a repository call already running
// in the worker is given up to ShutdownGrace to finish before Run returns.
// The returned error is non-nil only when the repository could not be opened.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan Event, e.opts.EventBuffer)
	work := make(chan Work, e.opts.WorkBuffer)
	inputDone := make(chan struct{})
	reactorDone := make(chan struct{})

	worker := NewWorker(e.open, work, events, e.opts.ProgressRate, e.opts.ShowStatus, e.log)
	listener := NewListener(*e.opts.Keys, e.keys, events, e.log)
	reactor := NewReactor(e.render, events, inputDone, work, e.opts.Remote, e.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		defer close(inputDone)
		return listener.Run(gctx)
	})
	g.Go(func() error {
		defer close(reactorDone)
		defer cancel()
		return reactor.Run(gctx)
	})
	for _, p := range e.producers {
		g.Go(func() error {
			return p(gctx, events)
		})
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
	}()

	<-reactorDone
	timer := time.NewTimer(e.opts.ShutdownGrace)
	defer timer.Stop()

	select {
	case err := <-waitErr:
		return err
	case <-timer.C:
		e.log.Warn().Dur("grace", e.opts.ShutdownGrace).Msg("worker still busy at shutdown, not waiting any longer")
		return nil
	}
}
