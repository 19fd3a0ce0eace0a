// Package switcher is the coordination engine of the branch switcher: an
// input listener, a worker that owns the repository and a reactor that owns
// the UI state, connected only by the Event and Work channels.
package switcher

import (
	"fmt"
	"time"

	"github.com/Johannes-Berggren/goblinswitch/internal/models"
)

// Direction of a Move command.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Event is a message consumed by the Reactor.
type Event interface {
	event()
}

// MoveMsg moves the selection one row.
type MoveMsg struct {
	Dir Direction
}

// EnterMsg checks out the selected branch.
type EnterMsg struct{}

// FetchMsg fetches the selected branch from the remote.
type FetchMsg struct{}

// ShutdownMsg ends the session.
type ShutdownMsg struct{}

// DismissMsg clears the status line.
type DismissMsg struct{}

// RefreshMsg asks for a fresh branch list.
type RefreshMsg struct{}

// RefsChangedMsg reports that branch refs changed on disk. At is when the
// last change of the burst was seen.
type RefsChangedMsg struct {
	At time.Time
}

// ProgressMsg reports checkout progress for request ID. Percent 100 is
// terminal and sent exactly once per checkout.
type ProgressMsg struct {
	ID      string
	Percent int
	Label   string
}

// ErrorMsg reports a failed repository call for request ID.
type ErrorMsg struct {
	ID  string
	Op  string
	Err error
}

func (e ErrorMsg) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// BranchesMsg carries a freshly enumerated branch list for display.
type BranchesMsg struct {
	Branches []models.Branch
	Tree     *models.WorkingTree // nil when status is disabled or failed
}

// FetchDoneMsg reports a completed fetch.
type FetchDoneMsg struct {
	ID     string
	Branch string
	Remote string
}

func (MoveMsg) event()        {}
func (EnterMsg) event()       {}
func (FetchMsg) event()       {}
func (ShutdownMsg) event()    {}
func (DismissMsg) event()     {}
func (RefreshMsg) event()     {}
func (RefsChangedMsg) event() {}
func (ProgressMsg) event()    {}
func (ErrorMsg) event()       {}
func (BranchesMsg) event()    {}
func (FetchDoneMsg) event()   {}

// Work is a request consumed by the Worker.
type Work interface {
	RequestID() string
	op() string
}

// CheckoutWork checks out the branch at Index of a freshly enumerated list.
// Seen is the name the operator had selected, used only for diagnostics.
type CheckoutWork struct {
	ID    string
	Index int
	Seen  string
}

// FetchWork fetches the branch at Index of a freshly enumerated list.
type FetchWork struct {
	ID    string
	Index int
	Seen  string
}

// RefreshWork re-enumerates branches. At is when the refresh was asked for;
// the Worker skips it when a listing started after that. A zero At always
// lists.
type RefreshWork struct {
	ID string
	At time.Time
}

func (w CheckoutWork) RequestID() string { return w.ID }
func (w FetchWork) RequestID() string    { return w.ID }
func (w RefreshWork) RequestID() string  { return w.ID }

func (CheckoutWork) op() string { return "checkout" }
func (FetchWork) op() string    { return "fetch" }
func (RefreshWork) op() string  { return "refresh" }
