package switcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Johannes-Berggren/goblinswitch/internal/models"
)

// Reactor owns the Application state. It is the only consumer of the Event
// Channel and the only producer on the Work Channel.
type Reactor struct {
	app      Application
	branches []models.Branch
	tree     *models.WorkingTree
	status   Status
	target   string // branch shown while checking out
	inflight string // request ID of the running checkout
	loaded   bool   // a branch list has arrived

	render    Renderer
	events    <-chan Event
	inputDone <-chan struct{}
	work      chan<- Work
	remote    string
	newID     func() string
	now       func() time.Time
	log       zerolog.Logger
}

// NewReactor creates a Reactor. inputDone is closed when the input listener
// ends; the Reactor treats that like Shutdown.
func NewReactor(render Renderer, events <-chan Event, inputDone <-chan struct{}, work chan<- Work, remote string, logger zerolog.Logger) *Reactor {
	return &Reactor{
		app:       NewApplication(),
		render:    render,
		events:    events,
		inputDone: inputDone,
		work:      work,
		remote:    remote,
		newID:     uuid.NewString,
		now:       time.Now,
		log:       logger.With().Str("component", "reactor").Logger(),
	}
}

// Application returns the current state.
func (r *Reactor) Application() Application {
	return r.app
}

// Run paints once, then processes events until Shutdown, the end of input
// or ctx is done. The display is cleared on the way out.
func (r *Reactor) Run(ctx context.Context) error {
	defer r.render.Clear()

	r.paint()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.inputDone:
			r.log.Info().Msg("input ended, shutting down")
			return nil
		case ev, ok := <-r.events:
			if !ok {
				return nil
			}
			if r.handle(ev) {
				r.log.Info().Msg("shutdown")
				return nil
			}
			r.paint()
		}
	}
}

// handle applies one event and reports whether the loop should end.
func (r *Reactor) handle(ev Event) bool {
	listing := r.app.State.Mode == Listing

	switch ev := ev.(type) {
	case ShutdownMsg:
		return true

	case MoveMsg:
		r.app = r.app.Move(ev.Dir, len(r.branches))

	case EnterMsg:
		if !listing || !r.hasSelection() {
			break
		}
		req := CheckoutWork{ID: r.newID(), Index: r.app.Position, Seen: r.selectedName()}
		if r.dispatch(req) {
			r.app = r.app.StartCheckout()
			r.inflight = req.ID
			r.target = req.Seen
			r.status = Status{}
		}

	case FetchMsg:
		if !listing || !r.hasSelection() {
			break
		}
		req := FetchWork{ID: r.newID(), Index: r.app.Position, Seen: r.selectedName()}
		if r.dispatch(req) {
			r.status = Status{Kind: StatusInfo, Text: fmt.Sprintf("Fetching %s from %s…", req.Seen, r.remote)}
		}

	case RefreshMsg:
		if listing {
			r.dispatch(RefreshWork{ID: r.newID(), At: r.now()})
		}

	case RefsChangedMsg:
		if !listing {
			break
		}
		at := ev.At
		if at.IsZero() {
			at = r.now()
		}
		r.dispatch(RefreshWork{ID: r.newID(), At: at})

	case DismissMsg:
		r.status = Status{}

	case ProgressMsg:
		if listing || ev.ID != r.inflight {
			break
		}
		r.app = r.app.Advance(ev.Percent, ev.Label)
		if r.app.State.Mode == Listing {
			r.inflight, r.target = "", ""
		}

	case ErrorMsg:
		if !listing && ev.ID == r.inflight {
			r.app = r.app.Finish()
			r.inflight, r.target = "", ""
		}
		r.status = Status{Kind: StatusError, Text: ev.Error()}

	case FetchDoneMsg:
		r.status = Status{Kind: StatusInfo, Text: fmt.Sprintf("Fetched %s/%s", ev.Remote, ev.Branch)}

	case BranchesMsg:
		r.log.Debug().Strs("branches", models.BranchNames(ev.Branches)).Msg("branch list")
		r.loaded = true
		r.branches = ev.Branches
		r.tree = ev.Tree
		r.app = r.app.Clamp(len(r.branches))
	}

	return false
}

// dispatch hands w to the Worker without blocking. A full Work Channel means
// the worker is saturated; the request is dropped and reported.
func (r *Reactor) dispatch(w Work) bool {
	select {
	case r.work <- w:
		r.log.Debug().Str("request_id", w.RequestID()).Str("op", w.op()).Msg("dispatched")
		return true
	default:
		r.log.Warn().Str("op", w.op()).Msg("work queue full, request dropped")
		r.status = Status{Kind: StatusError, Text: errBusy.Error()}
		return false
	}
}

var errBusy = errors.New("busy: earlier requests are still running")

// hasSelection reports whether Enter and Fetch have a branch to act on. The
// list shown before the first BranchesMsg is a placeholder, not a selection.
func (r *Reactor) hasSelection() bool {
	switch {
	case !r.loaded:
		r.status = Status{Kind: StatusInfo, Text: "Loading branches…"}
		return false
	case len(r.branches) == 0:
		r.status = Status{Kind: StatusInfo, Text: "No local branches"}
		return false
	}
	return true
}

func (r *Reactor) selectedName() string {
	if r.app.Position < len(r.branches) {
		return r.branches[r.app.Position].Name
	}
	return ""
}

func (r *Reactor) paint() {
	if r.app.State.Mode == CheckingOut {
		r.render.RenderCheckout(CheckoutView{
			Branch:  r.target,
			Percent: r.app.State.Progress,
			Label:   r.app.State.Label,
		})
		return
	}

	r.render.RenderListing(ListingView{
		Branches: r.branches,
		Selected: r.app.Position,
		Tree:     r.tree,
		Status:   r.status,
	})
}
