// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream sends a chat turn to the model endpoint and feeds the
// streamed reply into the store one token at a time.
//
// # Protocol
//
// The request is POST {base}/api/chat with {"messages": [...]}. The reply
// is a server-sent event body of "data: <json>" lines terminated by
// "data: [DONE]". Only choices[0].delta.content of each frame is read.
//
// # Key Types
//
//   - FrameDecoder: turns raw body chunks into data frames
//   - Client: opens the streamed HTTP request
//   - Session: runs one send through IDLE, SENDING, STREAMING and a
//     terminal phase (DONE, FAILED or CANCELLED)
//
// # Usage
//
//	client := stream.NewClient(stream.ClientConfig{BaseURL: "http://localhost:3001"})
//	sess := stream.NewSession(st, client, logger)
//	res := sess.Send(ctx, stream.Turn{Text: "hello"})
//	if res.Phase == stream.PhaseFailed {
//	    // the failure text is already in the conversation
//	}
package stream
