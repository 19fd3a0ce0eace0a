package models

import "fmt"

type FileStatus string

const (
	StatusModified  FileStatus = "M"  // Modified
	StatusAdded     FileStatus = "A"  // Added (staged new file)
	StatusDeleted   FileStatus = "D"  // Deleted
	StatusRenamed   FileStatus = "R"  // Renamed
	StatusCopied    FileStatus = "C"  // Copied
	StatusUntracked FileStatus = "??" // Untracked
	StatusUpdated   FileStatus = "U"  // Updated but unmerged
)

type FileChange struct {
	Path         string
	Status       FileStatus // Working tree status
	StagedStatus FileStatus // Staging area status
	IsStaged     bool
	IsUntracked  bool
}

// WorkingTree summarizes uncommitted changes for the header line.
type WorkingTree struct {
	Files []FileChange
}

// Clean reports whether there is nothing to commit.
func (w WorkingTree) Clean() bool {
	return len(w.Files) == 0
}

// Summary mirrors the short status text shown next to the branch name.
func (w WorkingTree) Summary() string {
	switch n := len(w.Files); n {
	case 0:
		return "clean"
	case 1:
		return "1 change"
	default:
		return fmt.Sprintf("%d changes", n)
	}
}
