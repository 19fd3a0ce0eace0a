// Package watch reports branch ref changes made outside the switcher.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/Johannes-Berggren/goblinswitch/internal/git"
	"github.com/Johannes-Berggren/goblinswitch/internal/switcher"
)

// DefaultDebounce collapses bursts such as a rebase into one refresh.
const DefaultDebounce = 250 * time.Millisecond

// Refs watches HEAD, packed-refs and refs/heads of a repository.
type Refs struct {
	gitDir   string
	refsDir  string
	debounce time.Duration
	log      zerolog.Logger
}

// NewRefs creates a watcher for the repository whose git directory is gitDir.
func NewRefs(gitDir string, debounce time.Duration, logger zerolog.Logger) *Refs {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	common := git.CommonDir(gitDir)
	return &Refs{
		gitDir:   common,
		refsDir:  filepath.Join(common, "refs", "heads"),
		debounce: debounce,
		log:      logger.With().Str("component", "watch").Logger(),
	}
}

// Run sends a RefsChangedMsg after each burst of ref changes until ctx is
// done, stamped with the time the burst's last change was seen. It satisfies
// switcher.Producer.
func (r *Refs) Run(ctx context.Context, events chan<- switcher.Event) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(r.gitDir); err != nil {
		return fmt.Errorf("watch %s: %w", r.gitDir, err)
	}
	if err := r.addTree(fsw, r.refsDir); err != nil {
		return err
	}
	r.log.Debug().Str("dir", r.gitDir).Msg("watching refs")

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()
	var last time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && r.inRefs(ev.Name) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := r.addTree(fsw, ev.Name); err != nil {
						r.log.Warn().Err(err).Msg("watch new ref directory")
					}
				}
			}
			if r.relevant(ev) {
				last = time.Now()
				timer.Reset(r.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			r.log.Warn().Err(err).Msg("watch error")

		case <-timer.C:
			r.log.Debug().Msg("refs changed")
			select {
			case events <- switcher.RefsChangedMsg{At: last}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// addTree watches dir and every directory below it; branch names with
// slashes live in subdirectories.
func (r *Refs) addTree(fsw *fsnotify.Watcher, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (r *Refs) inRefs(path string) bool {
	return path == r.refsDir || strings.HasPrefix(path, r.refsDir+string(filepath.Separator))
}

func (r *Refs) relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	if strings.HasSuffix(ev.Name, ".lock") {
		return false
	}
	if r.inRefs(ev.Name) {
		return true
	}
	switch filepath.Base(ev.Name) {
	case "HEAD", "packed-refs":
		return filepath.Dir(ev.Name) == r.gitDir
	}
	return false
}
