package models

import "time"

type Commit struct {
	Hash    string
	Author  string
	Email   string
	Date    time.Time // committer time
	Message string    // first line only
}
