package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// NewCaptureLogger returns a debug-level logger and a function listing the messages it has
// received so far, in order.
func NewCaptureLogger() (*slog.Logger, func() []string) {
	h := &captureHandler{state: &captureState{}}
	return slog.New(h), h.state.messages
}

type captureState struct {
	mu   sync.Mutex
	msgs []string
}

func (s *captureState) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.msgs...)
}

type captureHandler struct {
	state *captureState
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.msgs = append(h.state.msgs, r.Message)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }
