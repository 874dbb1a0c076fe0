// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the flurchat packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes, TruncateRunesNoEllipsis: UTF-8 safe truncation
//   - TruncateWidth: truncation by terminal display width
//   - SingleLine: collapse line breaks for one-line previews
//
// Attachments:
//   - ImageDataURI: turn a local image file (or an http(s) URL) into the url
//     carried by an image content block
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	title := util.TruncateRunesNoEllipsis(text, 50)
//	url, err := util.ImageDataURI("~/Pictures/cat.png")
//	err = util.AtomicWriteFile(path, data, 0600)
package util
