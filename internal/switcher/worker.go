package switcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/Johannes-Berggren/goblinswitch/internal/git"
	"github.com/Johannes-Berggren/goblinswitch/internal/models"
)

// ErrIndexOutOfRange is returned when a selected index no longer exists in
// the freshly enumerated branch list.
var ErrIndexOutOfRange = errors.New("selected branch no longer exists")

// Repository is the repository service used by the Worker.
type Repository interface {
	LocalBranches() ([]models.Branch, error)
	Checkout(name string, onProgress git.ProgressFunc) error
	Fetch(ctx context.Context, refNames []string) error
	Status() (models.WorkingTree, error)
	RemoteName() string
}

// Opener creates the repository handle. The Worker calls it from its own
// goroutine, so the handle never exists anywhere else.
type Opener func() (Repository, error)

// Worker serializes repository calls: it is the only consumer of the Work
// Channel and handles one request at a time.
type Worker struct {
	open       Opener
	work       <-chan Work
	events     chan<- Event
	limiter    *rate.Limiter
	showStatus bool
	listedAt   time.Time // start of the last branch enumeration
	now        func() time.Time
	tracer     trace.Tracer
	log        zerolog.Logger
}

// NewWorker creates a Worker. progressRate limits intermediate progress
// events per second; zero sends one event per progress callback.
func NewWorker(open Opener, work <-chan Work, events chan<- Event, progressRate float64, showStatus bool, logger zerolog.Logger) *Worker {
	w := &Worker{
		open:       open,
		work:       work,
		events:     events,
		showStatus: showStatus,
		now:        time.Now,
		tracer:     otel.Tracer("github.com/Johannes-Berggren/goblinswitch/internal/switcher"),
		log:        logger.With().Str("component", "worker").Logger(),
	}
	if progressRate > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(progressRate), 1)
	}
	return w
}

// Run opens the repository and serves requests until ctx is done or the Work
// Channel closes. Only a failure to open the repository is returned;
// request failures are reported as ErrorMsg events.
func (w *Worker) Run(ctx context.Context) error {
	repo, err := w.open()
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	w.log.Info().Msg("repository opened")

	if err := w.sendBranches(ctx, repo); err != nil {
		w.emit(ctx, ErrorMsg{Op: "list branches", Err: err})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-w.work:
			if !ok {
				return nil
			}
			w.handle(ctx, repo, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, repo Repository, req Work) {
	ctx, span := w.tracer.Start(ctx, "worker."+req.op(),
		trace.WithAttributes(attribute.String("request.id", req.RequestID())))
	defer span.End()

	logger := w.log.With().Str("request_id", req.RequestID()).Str("op", req.op()).Logger()
	start := time.Now()

	var err error
	switch req := req.(type) {
	case CheckoutWork:
		err = w.checkout(ctx, repo, req, logger)
	case FetchWork:
		err = w.fetch(ctx, repo, req, logger)
	case RefreshWork:
		if !req.At.IsZero() && req.At.Before(w.listedAt) {
			logger.Debug().Msg("branch list already newer, refresh skipped")
			return
		}
		if err = w.sendBranches(ctx, repo); err != nil {
			w.emit(ctx, ErrorMsg{ID: req.ID, Op: "refresh", Err: err})
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Dur("took", time.Since(start)).Msg("request failed")
		return
	}
	logger.Info().Dur("took", time.Since(start)).Msg("request done")
}

// checkout always ends with exactly one ProgressMsg at 100, after an
// ErrorMsg when it failed.
func (w *Worker) checkout(ctx context.Context, repo Repository, req CheckoutWork, logger zerolog.Logger) (err error) {
	defer func() {
		if err != nil {
			w.emit(ctx, ErrorMsg{ID: req.ID, Op: "checkout", Err: err})
		}
		w.emit(ctx, ProgressMsg{ID: req.ID, Percent: 100})
		if listErr := w.sendBranches(ctx, repo); listErr != nil {
			logger.Warn().Err(listErr).Msg("refresh after checkout failed")
		}
	}()

	name, err := w.resolve(repo, req.Index, req.Seen, logger)
	if err != nil {
		return err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("branch", name))

	err = repo.Checkout(name, func(label string, completed, total int) {
		p := percent(completed, total)
		if p >= 100 {
			p = 99
		}
		if w.limiter != nil && !w.limiter.Allow() {
			return
		}
		w.emit(ctx, ProgressMsg{ID: req.ID, Percent: p, Label: label})
	})
	if err != nil {
		return fmt.Errorf("checkout %s: %w", name, err)
	}
	return nil
}

func (w *Worker) fetch(ctx context.Context, repo Repository, req FetchWork, logger zerolog.Logger) error {
	name, err := w.resolve(repo, req.Index, req.Seen, logger)
	if err == nil {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("branch", name))
		if err = repo.Fetch(ctx, []string{name}); err != nil {
			err = fmt.Errorf("fetch %s: %w", name, err)
		}
	}

	if err != nil {
		w.emit(ctx, ErrorMsg{ID: req.ID, Op: "fetch", Err: err})
	} else {
		w.emit(ctx, FetchDoneMsg{ID: req.ID, Branch: name, Remote: repo.RemoteName()})
	}

	if listErr := w.sendBranches(ctx, repo); listErr != nil {
		logger.Warn().Err(listErr).Msg("refresh after fetch failed")
	}
	return err
}

// resolve maps index onto a freshly enumerated branch list.
func (w *Worker) resolve(repo Repository, index int, seen string, logger zerolog.Logger) (string, error) {
	branches, err := repo.LocalBranches()
	if err != nil {
		return "", fmt.Errorf("list branches: %w", err)
	}
	if index < 0 || index >= len(branches) {
		return "", fmt.Errorf("%w: index %d of %d", ErrIndexOutOfRange, index, len(branches))
	}

	name := branches[index].Name
	if seen != "" && seen != name {
		logger.Warn().Str("selected", seen).Str("resolved", name).Msg("branch list changed since selection")
	}
	return name, nil
}

func (w *Worker) sendBranches(ctx context.Context, repo Repository) error {
	w.listedAt = w.now()
	branches, err := repo.LocalBranches()
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}

	msg := BranchesMsg{Branches: branches}
	if w.showStatus {
		tree, err := repo.Status()
		if err != nil {
			w.log.Warn().Err(err).Msg("working tree status failed")
		} else {
			msg.Tree = &tree
		}
	}

	w.emit(ctx, msg)
	return nil
}

// emit never blocks past shutdown: once ctx is done the event is dropped.
func (w *Worker) emit(ctx context.Context, ev Event) {
	if !send(ctx, w.events, ev) {
		w.log.Debug().Type("event", ev).Msg("dropped event after shutdown")
	}
}

// percent is round(completed/total*100) clamped to 0..100.
func percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(completed) / float64(total) * 100))
	return max(0, min(100, p))
}
