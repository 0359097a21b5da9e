// Package prefs stores window preferences in the fyne application store.
package prefs

import (
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
)

const (
	keyLastDir     = "lastDirectory"
	keyRecent      = "recentImages"
	keySplitOffset = "splitOffset"

	// MaxRecent bounds the recent-images list.
	MaxRecent = 8

	defaultSplitOffset = 0.3
)

// Prefs wraps fyne.Preferences with typed accessors.
type Prefs struct {
	store fyne.Preferences
}

// New returns preferences backed by store.
func New(store fyne.Preferences) *Prefs {
	return &Prefs{store: store}
}

// LastDir returns the directory of the last opened file, or "".
func (p *Prefs) LastDir() string {
	return p.store.String(keyLastDir)
}

// RememberFile records the directory of path and adds path to the recent list.
func (p *Prefs) RememberFile(path string) {
	p.store.SetString(keyLastDir, filepath.Dir(path))
	p.AddRecent(path)
}

// Recent returns recently opened image references, newest first.
func (p *Prefs) Recent() []string {
	var out []string
	for _, r := range p.store.StringList(keyRecent) {
		if strings.TrimSpace(r) != "" {
			out = append(out, r)
		}
	}
	return out
}

// AddRecent moves ref to the front of the recent list. Data URLs are skipped.
func (p *Prefs) AddRecent(ref string) {
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return
	}
	list := []string{ref}
	for _, r := range p.Recent() {
		if r != ref && len(list) < MaxRecent {
			list = append(list, r)
		}
	}
	p.store.SetStringList(keyRecent, list)
}

// ClearRecent empties the recent list.
func (p *Prefs) ClearRecent() {
	p.store.SetStringList(keyRecent, nil)
}

// SplitOffset returns the side panel split, clamped to [0.1, 0.6].
func (p *Prefs) SplitOffset() float64 {
	v := p.store.FloatWithFallback(keySplitOffset, defaultSplitOffset)
	if v < 0.1 || v > 0.6 {
		return defaultSplitOffset
	}
	return v
}

// SetSplitOffset stores the side panel split.
func (p *Prefs) SetSplitOffset(v float64) {
	p.store.SetFloat(keySplitOffset, v)
}
