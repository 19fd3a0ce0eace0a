package switcher

import "github.com/Johannes-Berggren/goblinswitch/internal/models"

// StatusKind classifies the status line.
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusInfo
	StatusError
)

// Status is the dismissable message under the branch list.
type Status struct {
	Kind StatusKind
	Text string
}

// ListingView is the snapshot painted while listing branches.
type ListingView struct {
	Branches []models.Branch
	Selected int
	Tree     *models.WorkingTree
	Status   Status
}

// CheckoutView is the snapshot painted while a checkout runs.
type CheckoutView struct {
	Branch  string
	Percent int
	Label   string
}

// Renderer paints snapshots. Calls come only from the Reactor goroutine.
type Renderer interface {
	RenderListing(ListingView)
	RenderCheckout(CheckoutView)
	Clear()
}
