// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders conversations to files a person can read or a
// program can re-import.
//
// # Supported Formats
//
//   - Markdown: human-readable, with YAML frontmatter
//   - JSON: the stored conversation record, unfiltered
//   - HTML: a standalone page with embedded CSS and inline images
//
// # Usage
//
//	exporter, err := export.New(export.FormatMarkdown, nil)
//	path, err := export.ExportToFile(conv, exporter, opts)
package export
