package agent

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/sirius/internal/devserver"
	"github.com/dohr-michael/sirius/internal/protocol"
	"github.com/dohr-michael/sirius/internal/session"
)

type harness struct {
	t       *testing.T
	rt      *Runtime
	s       *session.Session
	results chan any
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := devserver.New(devserver.Options{
		Keepalive: 20 * time.Millisecond,
		StepDelay: time.Millisecond,
		Logger:    zerolog.Nop(),
	})
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rt := NewRuntime(ctx, New(ts.URL), 10*time.Millisecond)
	t.Cleanup(rt.Close)

	return &harness{t: t, rt: rt, s: session.New(zerolog.Nop()), results: make(chan any, 16)}
}

func (h *harness) run(effects []session.Effect) {
	for _, eff := range effects {
		if thunk := h.rt.Execute(eff); thunk != nil {
			go func() { h.results <- thunk() }()
		}
	}
}

// step feeds one frame or completion into the session.
func (h *harness) step(timeout <-chan time.Time) {
	select {
	case f := <-h.rt.Frames():
		h.run(h.s.Handle(session.StreamFrame{Frame: f}))
	case res := <-h.results:
		h.run(h.s.Handle(res))
	case <-timeout:
		h.t.Fatalf("timeout in state %s", h.s.Pending())
	}
}

func (h *harness) waitKeepalive() {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-h.rt.Frames():
			if f.Keepalive {
				return
			}
		case <-timeout:
			h.t.Fatal("no keepalive received")
		}
	}
}

func TestRuntime_TaskWithQuestion(t *testing.T) {
	h := newHarness(t)

	h.run(h.s.Handle(h.rt.Probe()()))
	require.Equal(t, session.Connected, h.s.Connection())
	require.True(t, h.rt.Streaming())
	h.waitKeepalive()

	effects, err := h.s.SendTask("which tab?")
	require.NoError(t, err)
	h.run(effects)

	timeout := time.After(5 * time.Second)
	for h.s.Pending() != session.Idle {
		h.step(timeout)
		if h.s.AnswerMode() && !h.s.AnswerInFlight() {
			effects, err := h.s.Submit("tab 2")
			require.NoError(t, err)
			h.run(effects)
		}
	}

	history := h.s.History()
	require.Len(t, history, 2)
	assert.Equal(t, protocol.Turn{Role: protocol.RoleAssistant, Content: `Done: which tab? (you picked "tab 2")`}, history[1])

	var thinking, question bool
	for _, m := range h.s.Transcript() {
		switch m.Kind {
		case session.KindThinking:
			thinking = strings.Contains(m.Content, "Reading the request")
		case session.KindQuestion:
			question = m.Content == devserver.DefaultQuestion
		}
	}
	assert.True(t, thinking, "thinking region missing")
	assert.True(t, question, "question missing")
}

func TestRuntime_Stop(t *testing.T) {
	h := newHarness(t)
	h.run(h.s.Handle(h.rt.Probe()()))
	h.waitKeepalive()

	effects, err := h.s.SendTask("which tab?")
	require.NoError(t, err)
	h.run(effects)

	timeout := time.After(5 * time.Second)
	for !h.s.AnswerMode() {
		h.step(timeout)
	}

	effects, err = h.s.StopTask()
	require.NoError(t, err)
	h.run(effects)
	for h.s.Pending() != session.Idle {
		h.step(timeout)
	}
	assert.True(t, h.s.InputEnabled())

	// the late "stopped" response lands in history without touching the controls
	for len(h.s.History()) < 2 {
		h.step(timeout)
	}
	assert.Equal(t, devserver.ResultStopped, h.s.History()[1].Content)
	assert.True(t, h.s.InputEnabled())
}

func TestRuntime_ProbeFailureClosesStream(t *testing.T) {
	rt := NewRuntime(context.Background(), New("http://127.0.0.1:1"), time.Second)
	defer rt.Close()
	s := session.New(zerolog.Nop())

	rt.Execute(session.OpenStream{})
	require.True(t, rt.Streaming())
	s.HandleProbe(true)

	res := rt.Probe()()
	for _, eff := range s.Handle(res) {
		rt.Execute(eff)
	}
	assert.Equal(t, session.Disconnected, s.Connection())
	assert.False(t, rt.Streaming())

	assert.Nil(t, rt.Execute(session.CloseStream{}))
	assert.Nil(t, rt.Execute(session.Speak{Text: "hi"}))
}
