package switcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func runEngine(t *testing.T, e *Engine) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
		return nil
	}
}

func TestEngine_SwitchBranch(t *testing.T) {
	repo := &fakeRepo{
		branches: []string{"main", "dev", "feature-x"},
		steps:    [][2]int{{5, 10}, {10, 10}},
	}
	keys := make(chanKeys, 8)
	rr := &recordingRenderer{}

	e := New(openFake(repo), keys, rr, Options{Remote: "origin"}, zerolog.Nop())
	done := runEngine(t, e)

	require.Eventually(t, func() bool {
		v, ok := rr.lastListing()
		return ok && len(v.Branches) == 3
	}, 5*time.Second, 10*time.Millisecond)

	keys <- "j"
	keys <- "j"
	keys <- "enter"

	require.Eventually(t, func() bool {
		checkedOut, _, _ := repo.snapshot()
		return len(checkedOut) == 1 && checkedOut[0] == "feature-x"
	}, 5*time.Second, 10*time.Millisecond)

	// Back to listing once the terminal progress arrives.
	require.Eventually(t, func() bool {
		_, checkouts, _ := rr.counts()
		v, _ := rr.lastListing()
		return checkouts > 0 && rr.last() == "listing" && v.Selected == 2
	}, 5*time.Second, 10*time.Millisecond)

	keys <- "q"
	require.NoError(t, waitDone(t, done))

	_, _, clears := rr.counts()
	require.Equal(t, 1, clears)
}

func TestEngine_OpenFailure(t *testing.T) {
	open := func() (Repository, error) { return nil, errors.New("not a git repository") }
	rr := &recordingRenderer{}

	e := New(open, make(chanKeys), rr, Options{}, zerolog.Nop())
	err := waitDone(t, runEngine(t, e))
	require.ErrorContains(t, err, "not a git repository")
}

func TestEngine_ClosedInputEndsSession(t *testing.T) {
	keys := make(chanKeys)
	close(keys)

	e := New(openFake(&fakeRepo{branches: []string{"main"}}), keys, &recordingRenderer{}, Options{}, zerolog.Nop())
	require.NoError(t, waitDone(t, runEngine(t, e)))
}

func TestEngine_ShutdownGraceBoundsWait(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	repo := &fakeRepo{branches: []string{"main", "dev"}, block: block}
	keys := make(chanKeys, 4)
	rr := &recordingRenderer{}

	e := New(openFake(repo), keys, rr, Options{ShutdownGrace: 100 * time.Millisecond}, zerolog.Nop())
	done := runEngine(t, e)

	require.Eventually(t, func() bool {
		v, ok := rr.lastListing()
		return ok && len(v.Branches) == 2
	}, 5*time.Second, 10*time.Millisecond)

	keys <- "enter"
	require.Eventually(t, func() bool {
		_, _, started := repo.snapshot()
		return started
	}, 5*time.Second, 10*time.Millisecond)

	keys <- "q"
	start := time.Now()
	require.NoError(t, waitDone(t, done))
	require.Less(t, time.Since(start), 3*time.Second)

	checkedOut, _, _ := repo.snapshot()
	require.Empty(t, checkedOut, "blocked checkout has not completed")
}

func TestEngine_ProducerEventsReachReactor(t *testing.T) {
	repo := &fakeRepo{branches: []string{"main"}}
	keys := make(chanKeys, 2)
	rr := &recordingRenderer{}

	e := New(openFake(repo), keys, rr, Options{}, zerolog.Nop())
	e.AddProducer(func(ctx context.Context, events chan<- Event) error {
		repo.mu.Lock()
		repo.branches = []string{"main", "hotfix"}
		repo.mu.Unlock()
		send(ctx, events, Event(RefsChangedMsg{}))
		<-ctx.Done()
		return nil
	})
	done := runEngine(t, e)

	require.Eventually(t, func() bool {
		v, ok := rr.lastListing()
		return ok && len(v.Branches) == 2
	}, 5*time.Second, 10*time.Millisecond)

	keys <- "q"
	require.NoError(t, waitDone(t, done))
}
