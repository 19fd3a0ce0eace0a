package switcher

// Mode is the top-level UI state.
type Mode int

const (
	Listing Mode = iota
	CheckingOut
)

func (m Mode) String() string {
	if m == CheckingOut {
		return "checking-out"
	}
	return "listing"
}

// AppState is Listing, or CheckingOut with its progress.
type AppState struct {
	Mode     Mode
	Progress int // 0..100, non-decreasing within one checkout
	Label    string
}

// Application is the state owned by the Reactor.
type Application struct {
	Position int
	State    AppState
}

// NewApplication returns the startup state.
func NewApplication() Application {
	return Application{Position: 0, State: AppState{Mode: Listing}}
}

// Move applies a navigation command over a list of n branches. The position
// is clamped to the list and frozen while a checkout is running.
func (a Application) Move(dir Direction, n int) Application {
	if a.State.Mode != Listing {
		return a
	}

	switch dir {
	case Down:
		if a.Position < n-1 {
			a.Position++
		}
	case Up:
		if a.Position > 0 {
			a.Position--
		}
	}
	return a
}

// StartCheckout enters CheckingOut with zero progress.
func (a Application) StartCheckout() Application {
	a.State = AppState{Mode: CheckingOut}
	return a
}

// Advance applies a progress update. At 100 or more the checkout is over.
func (a Application) Advance(percent int, label string) Application {
	if a.State.Mode != CheckingOut {
		return a
	}
	if percent >= 100 {
		return a.Finish()
	}

	if percent > a.State.Progress {
		a.State.Progress = percent
	}
	a.State.Label = label
	return a
}

// Finish returns to Listing and resets progress.
func (a Application) Finish() Application {
	a.State = AppState{Mode: Listing}
	return a
}

// Clamp keeps the position valid after the list changed to n entries.
func (a Application) Clamp(n int) Application {
	if n == 0 {
		a.Position = 0
		return a
	}
	if a.Position > n-1 {
		a.Position = n - 1
	}
	return a
}
