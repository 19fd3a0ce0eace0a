package ui

import (
	"context"
	"io"
	"sync"

	"github.com/Johannes-Berggren/goblinswitch/internal/switcher"
)

const defaultKeyBuffer = 64

// Keys is the switcher.KeySource fed by the Screen. Keys typed faster than
// the listener reads them are dropped once the buffer is full.
type Keys struct {
	ch   chan switcher.Key
	done chan struct{}
	once sync.Once
}

var _ switcher.KeySource = (*Keys)(nil)

func NewKeys() *Keys {
	return &Keys{
		ch:   make(chan switcher.Key, defaultKeyBuffer),
		done: make(chan struct{}),
	}
}

func (k *Keys) ReadKey(ctx context.Context) (switcher.Key, error) {
	select {
	case key := <-k.ch:
		return key, nil
	case <-k.done:
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close ends the source; ReadKey returns io.EOF afterwards.
func (k *Keys) Close() {
	k.once.Do(func() { close(k.done) })
}

func (k *Keys) push(key switcher.Key) bool {
	select {
	case <-k.done:
		return false
	default:
	}
	select {
	case k.ch <- key:
		return true
	default:
		return false
	}
}
