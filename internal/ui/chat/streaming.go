// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultMaxFPS caps how often a streaming reply is redrawn.
const defaultMaxFPS = 30

// =============================================================================
// CHANGE FEED
// =============================================================================

// changeFeed carries "something changed" signals from store subscribers and
// the session's phase hook into the Bubble Tea loop.
//
// RELIABILITY: Notify never blocks. Signals coalesce in a one-slot buffer,
// so a burst of tokens costs one redraw, and a subscriber can never stall
// the store or the stream while the UI is busy. In particular a Cancel
// issued from Update cannot deadlock against the stream it waits for.
type changeFeed struct {
	ch   chan struct{}
	done chan struct{}

	minInterval time.Duration

	mu        sync.Mutex
	lastFlush time.Time
	closeOnce sync.Once
}

func newChangeFeed(maxFPS int) *changeFeed {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &changeFeed{
		ch:          make(chan struct{}, 1),
		done:        make(chan struct{}),
		minInterval: time.Second / time.Duration(maxFPS),
	}
}

// Notify records a change. Safe to call from any goroutine.
func (f *changeFeed) Notify() {
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

// Wait returns a command that blocks until the next change and then yields
// StateChangedMsg, no sooner than one frame after the previous one. It
// yields nil once the feed is closed.
func (f *changeFeed) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-f.ch:
		case <-f.done:
			return nil
		}

		f.mu.Lock()
		wait := f.minInterval - time.Since(f.lastFlush)
		f.mu.Unlock()
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-f.done:
				return nil
			}
		}

		f.mu.Lock()
		f.lastFlush = time.Now()
		f.mu.Unlock()
		return StateChangedMsg{}
	}
}

// Close releases any pending Wait.
func (f *changeFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
