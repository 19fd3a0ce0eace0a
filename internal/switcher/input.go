package switcher

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// KeySource yields decoded key symbols. ReadKey blocks until a key arrives,
// ctx is done, or the source closes, in which case it returns io.EOF.
type KeySource interface {
	ReadKey(ctx context.Context) (Key, error)
}

// Listener turns key symbols into commands on the Event Channel.
type Listener struct {
	keys   KeyMap
	src    KeySource
	events chan<- Event
	log    zerolog.Logger
}

// NewListener creates a Listener.
func NewListener(keys KeyMap, src KeySource, events chan<- Event, logger zerolog.Logger) *Listener {
	return &Listener{
		keys:   keys,
		src:    src,
		events: events,
		log:    logger.With().Str("component", "input").Logger(),
	}
}

// Run reads keys until Shutdown is produced, the source ends or ctx is done.
// A closed or failing source ends the loop without emitting Shutdown.
func (l *Listener) Run(ctx context.Context) error {
	for {
		k, err := l.src.ReadKey(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, io.EOF):
				l.log.Debug().Msg("key source closed")
			default:
				l.log.Warn().Err(err).Msg("key source failed")
			}
			return nil
		}

		ev, ok := l.keys.CommandFor(k)
		if !ok {
			continue
		}

		if !send(ctx, l.events, ev) {
			return nil
		}
		if _, quit := ev.(ShutdownMsg); quit {
			l.log.Debug().Msg("shutdown requested")
			return nil
		}
	}
}

// send delivers v unless ctx is done first.
func send[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
