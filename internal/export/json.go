// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/flurchat/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations to JSON format.
// JSON exports always carry the complete conversation record and ignore the
// filtering options, so the file can be read back as a model.Conversation.
type JSONExporter struct {
	options *Options
}

// document is the exported JSON shape. The embedded conversation keeps the
// stored field names.
type document struct {
	model.Conversation
	ExportedAt time.Time `json:"exportedAt"`
	Generator  string    `json:"generator"`
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a conversation to JSON format. An empty conversation is
// exported as is.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}

	doc := document{
		Conversation: *conv,
		ExportedAt:   time.Now().UTC(),
		Generator:    Generator,
	}
	if doc.Messages == nil {
		doc.Messages = []model.Message{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
