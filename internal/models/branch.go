package models

import "time"

type Branch struct {
	Name      string
	Hash      string
	IsCurrent bool
	Upstream  string // e.g., "origin/main"
	Head      Commit
}

// ShortHash returns the abbreviated hash, or the full value when shorter.
func (b Branch) ShortHash() string {
	if len(b.Hash) > 7 {
		return b.Hash[:7]
	}
	return b.Hash
}

// CommitTime is the committer time of the branch tip.
func (b Branch) CommitTime() time.Time {
	return b.Head.Date
}

// BranchNames returns the names in list order.
func BranchNames(branches []Branch) []string {
	names := make([]string, len(branches))
	for i, b := range branches {
		names[i] = b.Name
	}
	return names
}
