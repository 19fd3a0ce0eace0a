package switcher

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/Johannes-Berggren/goblinswitch/internal/git"
	"github.com/Johannes-Berggren/goblinswitch/internal/models"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// makeBranches builds branches whose commit times descend in list order.
func makeBranches(names ...string) []models.Branch {
	out := make([]models.Branch, len(names))
	for i, n := range names {
		out[i] = models.Branch{
			Name: n,
			Hash: "0123456789abcdef",
			Head: models.Commit{Date: epoch.Add(-time.Duration(i) * time.Hour), Message: "work on " + n},
		}
	}
	return out
}

type fakeRepo struct {
	mu          sync.Mutex
	branches    []string
	steps       [][2]int
	checkoutErr error
	fetchErr    error
	listErr     error
	block       chan struct{} // when set, Checkout waits for it to close
	started     bool
	checkedOut  []string
	fetched     []string
	lists       int
}

func (f *fakeRepo) LocalBranches() ([]models.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return makeBranches(f.branches...), nil
}

func (f *fakeRepo) Checkout(name string, onProgress git.ProgressFunc) error {
	f.mu.Lock()
	f.started = true
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	for _, s := range f.steps {
		onProgress("src/", s[0], s[1])
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkedOut = append(f.checkedOut, name)
	return f.checkoutErr
}

func (f *fakeRepo) Fetch(_ context.Context, refNames []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, refNames...)
	return f.fetchErr
}

func (f *fakeRepo) Status() (models.WorkingTree, error) {
	return models.WorkingTree{Files: []models.FileChange{{Path: "a.txt", Status: models.StatusModified}}}, nil
}

func (f *fakeRepo) RemoteName() string { return "origin" }

func (f *fakeRepo) snapshot() (checkedOut, fetched []string, started bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checkedOut...), append([]string(nil), f.fetched...), f.started
}

func openFake(repo *fakeRepo) Opener {
	return func() (Repository, error) { return repo, nil }
}

// chanKeys is a KeySource fed by a channel; closing the channel ends input.
type chanKeys chan Key

func (c chanKeys) ReadKey(ctx context.Context) (Key, error) {
	select {
	case k, ok := <-c:
		if !ok {
			return "", io.EOF
		}
		return k, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recordingRenderer struct {
	mu        sync.Mutex
	listings  []ListingView
	checkouts []CheckoutView
	clears    int
	lastKind  string
}

func (r *recordingRenderer) RenderListing(v ListingView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings = append(r.listings, v)
	r.lastKind = "listing"
}

func (r *recordingRenderer) RenderCheckout(v CheckoutView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkouts = append(r.checkouts, v)
	r.lastKind = "checkout"
}

func (r *recordingRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
}

func (r *recordingRenderer) lastListing() (ListingView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.listings) == 0 {
		return ListingView{}, false
	}
	return r.listings[len(r.listings)-1], true
}

func (r *recordingRenderer) counts() (listings, checkouts, clears int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listings), len(r.checkouts), r.clears
}

func (r *recordingRenderer) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastKind
}
