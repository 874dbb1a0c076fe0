// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// STREAMING: Line-buffered SSE framing

// DonePayload is the end-of-stream sentinel.
const DonePayload = "[DONE]"

var dataPrefix = []byte("data: ")

// Frame is one "data: " line of the response body.
type Frame struct {
	Payload string
}

// IsDone reports whether the frame is the end-of-stream sentinel.
func (f Frame) IsDone() bool {
	return f.Payload == DonePayload
}

// FrameDecoder splits a byte stream into frames. A line cut across two
// chunks is held back until its newline arrives, so frames and multi-byte
// characters split by the transport are decoded exactly once.
type FrameDecoder struct {
	partial []byte
}

// Feed consumes one chunk and returns the complete frames it finished.
func (d *FrameDecoder) Feed(chunk []byte) []Frame {
	d.partial = append(d.partial, chunk...)

	var frames []Frame
	for {
		i := bytes.IndexByte(d.partial, '\n')
		if i < 0 {
			break
		}
		if f, ok := parseLine(d.partial[:i]); ok {
			frames = append(frames, f)
		}
		d.partial = d.partial[i+1:]
	}

	// Release the consumed prefix once the buffer drains
	if len(d.partial) == 0 {
		d.partial = nil
	}
	return frames
}

// Flush returns the frame held in an unterminated final line, if any.
func (d *FrameDecoder) Flush() []Frame {
	line := d.partial
	d.partial = nil
	if f, ok := parseLine(line); ok {
		return []Frame{f}
	}
	return nil
}

func parseLine(line []byte) (Frame, bool) {
	if !bytes.HasPrefix(line, dataPrefix) {
		return Frame{}, false
	}
	return Frame{Payload: string(bytes.TrimSpace(line[len(dataPrefix):]))}, true
}

// deltaChunk is the part of a stream chunk that carries text. Every other
// field is left undecoded so its type cannot reject the frame.
type deltaChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ParseToken extracts choices[0].delta.content from a frame payload. A
// chunk without choices yields "". Malformed JSON is an error.
func ParseToken(payload string) (string, error) {
	var chunk deltaChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", fmt.Errorf("malformed frame: %w", err)
	}
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}
