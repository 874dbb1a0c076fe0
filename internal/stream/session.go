// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/flurchat/internal/model"
	"github.com/jeranaias/flurchat/internal/store"
)

// FailureText is shown in the conversation when a reply cannot be
// completed.
const FailureText = "Error: the response could not be completed. Please try again."

// readBufferSize is the size of a single body read.
const readBufferSize = 4 * 1024

// supersedeRetry is how long a waiting send pauses between attempts to
// take over from the running one.
const supersedeRetry = 2 * time.Millisecond

// ErrEmptyTurn is returned by Send for a turn with no text and no images.
var ErrEmptyTurn = errors.New("nothing to send")

// =============================================================================
// PHASE
// =============================================================================

// Phase is the state of a send.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseDone
	PhaseFailed
	PhaseCancelled
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseSending:
		return "SENDING"
	case PhaseStreaming:
		return "STREAMING"
	case PhaseDone:
		return "DONE"
	case PhaseFailed:
		return "FAILED"
	case PhaseCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether p ends a send.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed || p == PhaseCancelled
}

// =============================================================================
// TURN AND RESULT
// =============================================================================

// Turn is a composed user message. Images are data URIs or remote URLs.
type Turn struct {
	Text   string
	Images []string
}

// IsEmpty reports whether the turn has neither text nor images.
func (t Turn) IsEmpty() bool {
	return strings.TrimSpace(t.Text) == "" && len(t.Images) == 0
}

// Result describes how a send ended.
type Result struct {
	Phase Phase

	// Tokens is the number of non-empty tokens applied to the store.
	Tokens int

	// UserMessageID and AssistantMessageID identify the messages the send
	// created; AssistantMessageID is empty when no reply was started.
	UserMessageID      string
	AssistantMessageID string

	// Err is the transport error for FAILED, the context error for
	// CANCELLED, or ErrEmptyTurn.
	Err error

	Duration time.Duration
}

// =============================================================================
// SESSION
// =============================================================================

// Session drives sends against one store. A Send supersedes any send still
// in flight: the older stream is cancelled and fully unwound before the new
// user message is added.
type Session struct {
	store  *store.Store
	opener Opener
	logger zerolog.Logger

	sendMu sync.Mutex // held for the whole of a send

	mu      sync.Mutex
	phase   Phase
	cancel  context.CancelFunc
	done    chan struct{}
	onPhase func(Phase)
}

// NewSession creates a session that writes into st and opens streams with
// opener.
func NewSession(st *store.Store, opener Opener, logger zerolog.Logger) *Session {
	return &Session{
		store:  st,
		opener: opener,
		logger: logger.With().Str("component", "stream").Logger(),
	}
}

// OnPhase registers fn to be called on every phase change. fn runs on the
// sending goroutine and must not call Send or Cancel.
func (s *Session) OnPhase(fn func(Phase)) {
	s.mu.Lock()
	s.onPhase = fn
	s.mu.Unlock()
}

// Phase returns the phase of the current or most recent send.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// InFlight reports whether a send is running.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Cancel aborts the in-flight send, if any, and waits for it to unwind.
// It must not be called from a store subscriber or an OnPhase hook.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	fn := s.onPhase
	s.mu.Unlock()

	if fn != nil {
		fn(p)
	}
}

// Send adds the turn as a user message and streams the reply into the
// store. It blocks until the stream ends, fails or is cancelled through
// ctx or Cancel. Transport failures are recorded in the conversation as
// FailureText and reported in the Result; they are never returned any
// other way.
func (s *Session) Send(ctx context.Context, turn Turn) Result {
	if turn.IsEmpty() {
		return Result{Phase: s.Phase(), Err: ErrEmptyTurn}
	}

	// A send that is still waiting keeps cancelling whichever send holds
	// the slot, so the latest of several racing sends is the one that runs.
	for !s.sendMu.TryLock() {
		s.Cancel()
		select {
		case <-ctx.Done():
			return Result{Phase: PhaseCancelled, Err: ctx.Err()}
		case <-time.After(supersedeRetry):
		}
	}
	defer s.sendMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	start := time.Now()
	res := Result{Phase: PhaseFailed}

	// RELIABILITY: the loading flag is cleared on every exit path before
	// the terminal phase is announced
	defer func() {
		cancel()
		s.store.SetLoading(false)
		res.Duration = time.Since(start)

		s.mu.Lock()
		s.cancel, s.done = nil, nil
		s.mu.Unlock()
		close(done)

		s.setPhase(res.Phase)
		s.logger.Debug().
			Str("phase", res.Phase.String()).
			Int("tokens", res.Tokens).
			Dur("duration", res.Duration).
			Err(res.Err).
			Msg("send finished")
	}()

	s.setPhase(PhaseSending)
	user := s.store.AddMessage(model.NewUserMessage(turn.Text, turn.Images))
	res.UserMessageID = user.ID
	s.store.SetLoading(true)

	// Read after the append so the payload ends with this turn
	payload := s.store.MessagesForAPI()

	body, err := s.opener.Open(runCtx, payload)
	if err != nil {
		s.finish(runCtx, &res, err)
		return res
	}
	defer body.Close()

	s.setPhase(PhaseStreaming)
	err = s.consume(runCtx, body, &res)
	s.finish(runCtx, &res, err)
	return res
}

// consume reads the body until EOF, applying tokens in wire order.
func (s *Session) consume(ctx context.Context, body io.Reader, res *Result) error {
	var dec FrameDecoder
	buf := make([]byte, readBufferSize)

	for {
		n, err := body.Read(buf)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if n > 0 {
			s.apply(dec.Feed(buf[:n]), res)
		}
		if errors.Is(err, io.EOF) {
			s.apply(dec.Flush(), res)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) apply(frames []Frame, res *Result) {
	for _, f := range frames {
		if f.IsDone() {
			continue
		}

		token, err := ParseToken(f.Payload)
		if err != nil {
			s.logger.Debug().Err(err).Msg("skipping frame")
			continue
		}
		if token == "" {
			continue
		}

		if res.Tokens == 0 {
			msg := s.store.AddMessage(model.NewAssistantMessage(token))
			res.AssistantMessageID = msg.ID
		} else {
			s.store.AppendToLastMessage(token)
		}
		res.Tokens++
	}
}

// finish classifies the end of a send and records failures in the
// conversation.
func (s *Session) finish(ctx context.Context, res *Result, err error) {
	switch {
	case err == nil:
		res.Phase = PhaseDone
		return
	case ctx.Err() != nil:
		res.Phase = PhaseCancelled
		res.Err = ctx.Err()
		return
	}

	res.Phase = PhaseFailed
	res.Err = err
	s.logger.Warn().Err(err).Int("tokens", res.Tokens).Msg("stream failed")

	if res.Tokens == 0 {
		msg := s.store.AddMessage(model.NewAssistantMessage(FailureText))
		res.AssistantMessageID = msg.ID
		return
	}
	if !s.store.AppendToLastMessage("\n\n" + FailureText) {
		s.store.AddMessage(model.NewAssistantMessage(FailureText))
	}
}
