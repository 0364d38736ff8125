package knowledge

import (
	"errors"
	"sync/atomic"
)

// Source hands out the index currently being served.
type Source interface {
	Current() *Index
}

// Holder publishes the active index. Readers never block; a reload swaps the
// whole index in one step and a failed reload leaves the old one in place.
type Holder struct {
	current atomic.Pointer[Index]
}

// NewHolder returns a holder serving idx.
func NewHolder(idx *Index) *Holder {
	if idx == nil {
		panic("knowledge: holder requires a loaded index")
	}
	h := &Holder{}
	h.current.Store(idx)
	return h
}

// Current returns the active index.
func (h *Holder) Current() *Index {
	return h.current.Load()
}

// Swap replaces the active index.
func (h *Holder) Swap(idx *Index) error {
	if idx == nil {
		return errors.New("knowledge: cannot swap in a nil index")
	}
	h.current.Store(idx)
	return nil
}

// Reload loads path and, only if it parses, makes it the active index.
func (h *Holder) Reload(path string) (*Index, error) {
	idx, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	h.current.Store(idx)
	return idx, nil
}
