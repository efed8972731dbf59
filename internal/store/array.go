// Package store provides frame output handlers for acquisition runs: an
// in-memory array, a bbolt-backed database, and a one-file-per-frame image
// sequence writer, plus path helpers for choosing between them.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"mmstudio/internal/mmcore"
)

// Array is a readable multi-dimensional frame collection. Frames are keyed
// by their per-axis indices; missing keys simply have no frame yet, so a
// viewer can display an array mid-acquisition.
type Array struct {
	Labels []string
	Dims   []int

	mu     sync.RWMutex
	width  int
	height int
	frames map[string][]uint16
}

func newArray(labels []string, dims []int) *Array {
	return &Array{
		Labels: append([]string(nil), labels...),
		Dims:   append([]int(nil), dims...),
		frames: map[string][]uint16{},
	}
}

// indexKey canonicalizes an index map using the array's axis order so that
// lookups are stable regardless of map iteration order.
func indexKey(labels []string, index map[string]int) string {
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s=%d", label, index[label]))
	}
	return strings.Join(parts, ";")
}

// parseIndexKey is the inverse of indexKey.
func parseIndexKey(key string) map[string]int {
	index := map[string]int{}
	if key == "" {
		return index
	}
	for _, part := range strings.Split(key, ";") {
		label, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		var n int
		fmt.Sscanf(value, "%d", &n)
		index[label] = n
	}
	return index
}

func (a *Array) put(index map[string]int, frame mmcore.Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.width == 0 {
		a.width, a.height = frame.Width, frame.Height
	}
	pix := make([]uint16, len(frame.Pix))
	copy(pix, frame.Pix)
	a.frames[indexKey(a.Labels, index)] = pix
}

// Frame returns the frame at the given index, if one has been stored.
func (a *Array) Frame(index map[string]int) (mmcore.Frame, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pix, ok := a.frames[indexKey(a.Labels, index)]
	if !ok {
		return mmcore.Frame{}, false
	}
	return mmcore.Frame{Width: a.width, Height: a.height, Pix: pix}, true
}

// Len reports the number of frames stored so far.
func (a *Array) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.frames)
}

// Keys returns the stored index keys in sorted order.
func (a *Array) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.frames))
	for k := range a.frames {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ArrayProvider is implemented by handlers whose stored data can be read
// back as an Array. Store returns nil until the handler has been reset for
// a sequence.
type ArrayProvider interface {
	Store() *Array
}
