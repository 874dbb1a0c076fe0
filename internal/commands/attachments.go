// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/flurchat/internal/util"
)

// MaxAttachments caps the images staged for one message.
const MaxAttachments = 8

// ErrTooManyAttachments is returned by Add once MaxAttachments are staged.
var ErrTooManyAttachments = errors.New("too many attachments")

// Attachment is an image staged for the next message.
type Attachment struct {
	// Name is a short label for display.
	Name string

	// URI is a data URI for local files, or the URL as given.
	URI string
}

// Attachments holds the images staged for the next message. It is safe for
// concurrent use.
type Attachments struct {
	mu    sync.Mutex
	items []Attachment
}

// NewAttachments returns an empty set.
func NewAttachments() *Attachments {
	return &Attachments{}
}

// Add loads ref (a local image path, an http(s) URL or a data URI) and
// stages it.
func (a *Attachments) Add(ref string) (Attachment, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Attachment{}, errors.New("image path must not be empty")
	}

	a.mu.Lock()
	full := len(a.items) >= MaxAttachments
	a.mu.Unlock()
	if full {
		return Attachment{}, ErrTooManyAttachments
	}

	uri, err := util.ImageDataURI(ref)
	if err != nil {
		return Attachment{}, err
	}
	att := Attachment{Name: attachmentName(ref), URI: uri}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.items) >= MaxAttachments {
		return Attachment{}, ErrTooManyAttachments
	}
	a.items = append(a.items, att)
	return att, nil
}

func attachmentName(ref string) string {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return "inline image"
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		name := path.Base(strings.SplitN(ref, "?", 2)[0])
		if name == "" || name == "/" || name == "." {
			return ref
		}
		return name
	default:
		return filepath.Base(ref)
	}
}

// Len returns the number of staged images.
func (a *Attachments) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Names returns the display names of the staged images.
func (a *Attachments) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, len(a.items))
	for i, item := range a.items {
		names[i] = item.Name
	}
	return names
}

// Take returns the staged URIs in order and empties the set.
func (a *Attachments) Take() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.items) == 0 {
		return nil
	}
	uris := make([]string, len(a.items))
	for i, item := range a.items {
		uris[i] = item.URI
	}
	a.items = nil
	return uris
}

// Clear empties the set and returns how many images were dropped.
func (a *Attachments) Clear() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.items)
	a.items = nil
	return n
}
