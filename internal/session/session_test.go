package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/sirius/internal/protocol"
)

func newConnected(t *testing.T) *Session {
	t.Helper()
	s := New(zerolog.Nop())
	s.HandleProbe(true)
	return s
}

func tokenFrame(content string) StreamFrame {
	return eventFrame(protocol.EventToken, content)
}

func eventFrame(typ protocol.EventType, content string) StreamFrame {
	data, _ := protocol.EncodeEvent(protocol.Event{Type: typ, Content: content})
	// strip the SSE framing, the transport hands over the bare payload
	return StreamFrame{Frame: protocol.Frame{Data: data[len("data: ") : len(data)-2]}}
}

func sendTask(t *testing.T, s *Session, text string) PostChat {
	t.Helper()
	effects, err := s.SendTask(text)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	post, ok := effects[0].(PostChat)
	require.True(t, ok)
	return post
}

func success(taskID uint64, result string) ChatResult {
	return ChatResult{TaskID: taskID, Response: &protocol.ChatResponse{Status: protocol.StatusSuccess, Result: result}}
}

func kinds(msgs []Message) []MessageKind {
	out := make([]MessageKind, len(msgs))
	for i, m := range msgs {
		out[i] = m.Kind
	}
	return out
}

func TestNew(t *testing.T) {
	s := New(zerolog.Nop())

	assert.Equal(t, Disconnected, s.Connection())
	assert.Equal(t, Idle, s.Pending())
	assert.False(t, s.InputEnabled())
	assert.Equal(t, PlaceholderDisconnected, s.Placeholder())
	require.Len(t, s.Transcript(), 1)
	assert.Equal(t, Greeting, s.Transcript()[0].Content)
	assert.Empty(t, s.History())
}

func TestHandleProbe(t *testing.T) {
	t.Run("transitions only on change", func(t *testing.T) {
		outcomes := []bool{false, true, true, true, false, false, true, false, true, true}
		s := New(zerolog.Nop())
		prev := false
		for i, ok := range outcomes {
			effects := s.HandleProbe(ok)
			if ok == prev {
				assert.Empty(t, effects, "probe %d", i)
				continue
			}
			require.Len(t, effects, 1, "probe %d", i)
			if ok {
				assert.IsType(t, OpenStream{}, effects[0])
				assert.Equal(t, Connected, s.Connection())
			} else {
				assert.IsType(t, CloseStream{}, effects[0])
				assert.Equal(t, Disconnected, s.Connection())
			}
			prev = ok
		}
	})

	t.Run("connected enables input", func(t *testing.T) {
		s := New(zerolog.Nop())
		effects := s.HandleProbe(true)
		assert.Equal(t, []Effect{OpenStream{}}, effects)
		assert.True(t, s.InputEnabled())
		assert.Equal(t, StatusConnected, s.Status())
		assert.Equal(t, PlaceholderTask, s.Placeholder())
	})

	t.Run("repeated success does not re-announce", func(t *testing.T) {
		s := newConnected(t)
		s.status = "Opening browser"
		assert.Empty(t, s.HandleProbe(true))
		assert.Equal(t, "Opening browser", s.Status())
	})

	t.Run("two failures announce connection lost once", func(t *testing.T) {
		s := newConnected(t)
		first := s.HandleProbe(false)
		assert.Equal(t, []Effect{CloseStream{}}, first)
		assert.Equal(t, StatusConnectionLost, s.Status())
		assert.False(t, s.InputEnabled())

		s.status = "cleared by test"
		assert.Empty(t, s.HandleProbe(false))
		assert.Equal(t, "cleared by test", s.Status())
	})
}

func TestSendTask_Preconditions(t *testing.T) {
	t.Run("empty after trim", func(t *testing.T) {
		s := newConnected(t)
		_, err := s.SendTask("   \n")
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Empty(t, s.History())
	})

	t.Run("disconnected", func(t *testing.T) {
		s := New(zerolog.Nop())
		_, err := s.SendTask("find cats")
		assert.ErrorIs(t, err, ErrDisconnected)
	})

	t.Run("busy", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "first")
		_, err := s.SendTask("second")
		assert.ErrorIs(t, err, ErrBusy)
		assert.Len(t, s.History(), 1)
	})
}

func TestScenario_SuccessfulTask(t *testing.T) {
	s := New(zerolog.Nop())
	require.Equal(t, []Effect{OpenStream{}}, s.HandleProbe(true))
	assert.True(t, s.InputEnabled())

	post := sendTask(t, s, "find cats")
	assert.Equal(t, "find cats", post.Request.Query)
	assert.Equal(t, []protocol.Turn{{Role: protocol.RoleUser, Content: "find cats"}}, post.Request.ChatHistory)
	assert.Equal(t, []protocol.Turn{{Role: protocol.RoleUser, Content: "find cats"}}, s.History())
	assert.True(t, s.StopVisible())
	assert.False(t, s.SendVisible())
	assert.False(t, s.InputEnabled())
	assert.Equal(t, StatusThinking, s.Status())
	assert.Equal(t, AwaitingResult, s.Pending())

	effects := s.HandleChatResult(success(post.TaskID, "Done"))
	assert.Equal(t, []Effect{Speak{Text: "Done"}}, effects)
	assert.Equal(t, []protocol.Turn{
		{Role: protocol.RoleUser, Content: "find cats"},
		{Role: protocol.RoleAssistant, Content: "Done"},
	}, s.History())
	assert.False(t, s.StopVisible())
	assert.True(t, s.SendVisible())
	assert.True(t, s.InputEnabled())
	assert.Empty(t, s.Status())
	assert.Equal(t, Idle, s.Pending())
}

func TestSendTask_CarriesFullHistory(t *testing.T) {
	s := newConnected(t)
	first := sendTask(t, s, "open news")
	s.HandleChatResult(success(first.TaskID, "Opened"))

	second := sendTask(t, s, "scroll down")
	assert.Equal(t, []protocol.Turn{
		{Role: protocol.RoleUser, Content: "open news"},
		{Role: protocol.RoleAssistant, Content: "Opened"},
		{Role: protocol.RoleUser, Content: "scroll down"},
	}, second.Request.ChatHistory)
}

func TestHandleChatResult_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		result      func(taskID uint64) ChatResult
		wantTurns   int
		wantMessage string
		wantKind    MessageKind
	}{
		{
			name:        "success",
			result:      func(id uint64) ChatResult { return success(id, "Done") },
			wantTurns:   2,
			wantMessage: "Done",
			wantKind:    KindText,
		},
		{
			name: "failure with message",
			result: func(id uint64) ChatResult {
				return ChatResult{TaskID: id, Response: &protocol.ChatResponse{Status: protocol.StatusError, Message: "Browser crashed"}}
			},
			wantTurns:   1,
			wantMessage: "Browser crashed",
			wantKind:    KindError,
		},
		{
			name: "failure with detail",
			result: func(id uint64) ChatResult {
				return ChatResult{TaskID: id, Response: &protocol.ChatResponse{Detail: []byte(`"Agent worker thread is dead"`)}}
			},
			wantTurns:   1,
			wantMessage: "Agent worker thread is dead",
			wantKind:    KindError,
		},
		{
			name: "failure without text",
			result: func(id uint64) ChatResult {
				return ChatResult{TaskID: id, Response: &protocol.ChatResponse{Status: protocol.StatusError}}
			},
			wantTurns:   1,
			wantMessage: MessageTaskFailed,
			wantKind:    KindError,
		},
		{
			name: "malformed body",
			result: func(id uint64) ChatResult {
				return ChatResult{TaskID: id, Err: fmt.Errorf("decode chat response: %w", protocol.ErrMalformedResponse)}
			},
			wantTurns:   1,
			wantMessage: MessageTaskFailed,
			wantKind:    KindError,
		},
		{
			name: "transport failure",
			result: func(id uint64) ChatResult {
				return ChatResult{TaskID: id, Err: errors.New("connection refused")}
			},
			wantTurns:   1,
			wantMessage: MessageUnreachable,
			wantKind:    KindError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newConnected(t)
			post := sendTask(t, s, "find cats")
			s.HandleFrame(tokenFrame("looking").Frame)

			s.HandleChatResult(tt.result(post.TaskID))

			assert.Len(t, s.History(), tt.wantTurns)
			transcript := s.Transcript()
			last := transcript[len(transcript)-1]
			assert.Equal(t, tt.wantMessage, last.Content)
			assert.Equal(t, tt.wantKind, last.Kind)
			assert.Equal(t, protocol.RoleAssistant, last.Role)

			assert.Equal(t, Idle, s.Pending())
			assert.True(t, s.InputEnabled())
			assert.True(t, s.SendVisible())
			assert.False(t, s.StopVisible())
			assert.Empty(t, s.Thinking())
		})
	}
}

func TestTurnsPerTask(t *testing.T) {
	s := newConnected(t)
	outcomes := []ChatResult{
		success(0, "ok"),
		{Response: &protocol.ChatResponse{Status: protocol.StatusError}},
		{Err: errors.New("boom")},
		success(0, "again"),
	}
	wantTurns := 0
	for i, outcome := range outcomes {
		post := sendTask(t, s, fmt.Sprintf("task %d", i))
		wantTurns++
		assert.Len(t, s.History(), wantTurns)

		outcome.TaskID = post.TaskID
		s.HandleChatResult(outcome)
		if outcome.Err == nil && outcome.Response.Succeeded() {
			wantTurns++
		}
		assert.Len(t, s.History(), wantTurns)
	}
	assert.Equal(t, protocol.RoleUser, s.History()[0].Role)
	assert.Equal(t, protocol.RoleAssistant, s.History()[1].Role)
}

func TestThinking(t *testing.T) {
	t.Run("accumulates into one region", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "find cats")
		s.Handle(tokenFrame("Hel"))
		s.Handle(tokenFrame("lo"))

		assert.Equal(t, "Hello", s.Thinking())
		transcript := s.Transcript()
		assert.Equal(t, []MessageKind{KindText, KindText, KindThinking}, kinds(transcript))
		assert.Equal(t, "Hello", transcript[2].Content)
		assert.False(t, transcript[2].Collapsed)
	})

	t.Run("buffer isolation across tasks", func(t *testing.T) {
		s := newConnected(t)
		first := sendTask(t, s, "first")
		s.Handle(tokenFrame("old-1 "))
		s.HandleStopResult(nil)
		s.Handle(tokenFrame("old-2 "))

		second := sendTask(t, s, "second")
		require.NotEqual(t, first.TaskID, second.TaskID)
		assert.Empty(t, s.Thinking())
		s.Handle(tokenFrame("new"))

		assert.Equal(t, "new", s.Thinking())
		assert.NotContains(t, s.Thinking(), "old")
	})

	t.Run("previous region collapses", func(t *testing.T) {
		s := newConnected(t)
		first := sendTask(t, s, "first")
		s.Handle(tokenFrame("a"))
		s.HandleChatResult(success(first.TaskID, "A"))

		sendTask(t, s, "second")
		s.Handle(tokenFrame("b"))

		var regions []Message
		for _, m := range s.Transcript() {
			if m.Kind == KindThinking {
				regions = append(regions, m)
			}
		}
		require.Len(t, regions, 2)
		assert.True(t, regions[0].Collapsed)
		assert.Equal(t, "a", regions[0].Content)
		assert.False(t, regions[1].Collapsed)
		assert.Equal(t, "b", regions[1].Content)
	})

	t.Run("tokens while idle are dropped", func(t *testing.T) {
		s := newConnected(t)
		s.Handle(tokenFrame("stray"))
		assert.Empty(t, s.Thinking())
		assert.Len(t, s.Transcript(), 1)
	})

	t.Run("region recreated after clear", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "first")
		s.Handle(tokenFrame("a"))
		s.ClearHistory()
		s.Handle(tokenFrame("b"))

		transcript := s.Transcript()
		assert.Equal(t, []MessageKind{KindText, KindThinking}, kinds(transcript))
		assert.Equal(t, "ab", transcript[1].Content)
	})

	t.Run("toggle latest region", func(t *testing.T) {
		s := newConnected(t)
		assert.False(t, s.ToggleThinking())
		sendTask(t, s, "first")
		s.Handle(tokenFrame("a"))
		assert.True(t, s.ToggleThinking())
		assert.True(t, s.Transcript()[2].Collapsed)
	})
}

func TestHandleFrame(t *testing.T) {
	t.Run("keepalive has no effect", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "x")
		before := s.Transcript()
		assert.Empty(t, s.HandleFrame(protocol.Frame{Keepalive: true}))
		assert.Equal(t, before, s.Transcript())
		assert.Equal(t, StatusThinking, s.Status())
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "x")
		s.HandleFrame(protocol.Frame{Data: []byte("{not json")})
		assert.Equal(t, Connected, s.Connection())
		assert.Equal(t, AwaitingResult, s.Pending())
		assert.Equal(t, StatusThinking, s.Status())
		assert.Len(t, s.Transcript(), 2)
	})

	t.Run("status replaces status line", func(t *testing.T) {
		s := newConnected(t)
		s.Handle(eventFrame(protocol.EventStatus, "Opening browser"))
		assert.Equal(t, "Opening browser", s.Status())
		s.Handle(eventFrame(protocol.EventStatus, "Clicking"))
		assert.Equal(t, "Clicking", s.Status())
	})

	t.Run("unknown type is ignored", func(t *testing.T) {
		s := newConnected(t)
		s.Handle(eventFrame("debug", "noise"))
		assert.Len(t, s.Transcript(), 1)
		assert.Equal(t, StatusConnected, s.Status())
	})
}

func TestQuestion(t *testing.T) {
	t.Run("only processed while awaiting result", func(t *testing.T) {
		for _, setup := range []struct {
			name string
			fn   func(t *testing.T, s *Session)
		}{
			{name: "idle", fn: func(t *testing.T, s *Session) {}},
			{name: "awaiting answer", fn: func(t *testing.T, s *Session) {
				sendTask(t, s, "x")
				s.Handle(eventFrame(protocol.EventQuestion, "first?"))
			}},
		} {
			t.Run(setup.name, func(t *testing.T) {
				s := newConnected(t)
				setup.fn(t, s)
				before := len(s.Transcript())
				pending := s.Pending()
				s.Handle(eventFrame(protocol.EventQuestion, "ignored?"))
				assert.Len(t, s.Transcript(), before)
				assert.Equal(t, pending, s.Pending())
			})
		}
	})

	t.Run("moves to awaiting answer with input enabled", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "x")
		s.Handle(eventFrame(protocol.EventQuestion, "Which tab?"))

		assert.Equal(t, AwaitingAnswer, s.Pending())
		assert.True(t, s.InputEnabled())
		assert.True(t, s.AnswerMode())
		assert.Equal(t, PlaceholderAnswer, s.Placeholder())
		assert.Equal(t, StatusWaitingAnswer, s.Status())
		assert.True(t, s.StopVisible())
	})
}

func TestScenario_QuestionAndAnswer(t *testing.T) {
	s := newConnected(t)
	post := sendTask(t, s, "find cats")
	s.Handle(eventFrame(protocol.EventQuestion, "Which tab?"))

	transcript := s.Transcript()
	last := transcript[len(transcript)-1]
	assert.Equal(t, "Which tab?", last.Content)
	assert.Equal(t, protocol.RoleAssistant, last.Role)
	assert.Equal(t, KindQuestion, last.Kind)
	assert.Equal(t, AwaitingAnswer, s.Pending())

	effects, err := s.Submit("tab 2")
	require.NoError(t, err)
	assert.Equal(t, []Effect{PostAnswer{Text: "tab 2"}}, effects)
	assert.False(t, s.InputEnabled())
	assert.Equal(t, "tab 2", s.Transcript()[len(s.Transcript())-1].Content)

	s.Handle(AnswerResult{})
	assert.Equal(t, AwaitingResult, s.Pending())
	assert.Equal(t, PlaceholderTask, s.Placeholder())
	assert.Equal(t, StatusAnswerSent, s.Status())
	assert.False(t, s.InputEnabled())
	assert.True(t, s.StopVisible())

	s.HandleChatResult(success(post.TaskID, "Found them"))
	assert.Equal(t, Idle, s.Pending())
	assert.Equal(t, []protocol.Turn{
		{Role: protocol.RoleUser, Content: "find cats"},
		{Role: protocol.RoleAssistant, Content: "Found them"},
	}, s.History())
}

func TestSubmitAnswer(t *testing.T) {
	t.Run("failure keeps the question open", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "x")
		s.Handle(eventFrame(protocol.EventQuestion, "Which tab?"))
		_, err := s.SubmitAnswer("tab 2")
		require.NoError(t, err)

		s.HandleAnswerResult(errors.New("connection reset"))
		assert.Equal(t, AwaitingAnswer, s.Pending())
		assert.True(t, s.InputEnabled())
		assert.Equal(t, StatusAnswerFailed, s.Status())

		effects, err := s.Submit("tab 2")
		require.NoError(t, err)
		assert.Equal(t, []Effect{PostAnswer{Text: "tab 2"}}, effects)
	})

	t.Run("rejections", func(t *testing.T) {
		s := newConnected(t)
		_, err := s.SubmitAnswer("tab 2")
		assert.ErrorIs(t, err, ErrNotAsked)

		sendTask(t, s, "x")
		s.Handle(eventFrame(protocol.EventQuestion, "Which tab?"))
		_, err = s.SubmitAnswer("  ")
		assert.ErrorIs(t, err, ErrEmptyInput)

		_, err = s.SubmitAnswer("tab 2")
		require.NoError(t, err)
		_, err = s.SubmitAnswer("tab 3")
		assert.ErrorIs(t, err, ErrBusy)
	})

	t.Run("acknowledgement keeps a newer stream status", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "x")
		s.Handle(eventFrame(protocol.EventQuestion, "Which tab?"))
		_, err := s.SubmitAnswer("tab 2")
		require.NoError(t, err)

		s.Handle(eventFrame(protocol.EventStatus, "Continuing with: tab 2"))
		s.Handle(AnswerResult{})
		assert.Equal(t, AwaitingResult, s.Pending())
		assert.Equal(t, "Continuing with: tab 2", s.Status())
	})

	t.Run("follow-up question before the acknowledgement", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "x")
		s.Handle(eventFrame(protocol.EventQuestion, "Which tab?"))
		_, err := s.SubmitAnswer("tab 2")
		require.NoError(t, err)

		s.Handle(eventFrame(protocol.EventQuestion, "Which window?"))
		assert.Equal(t, AwaitingAnswer, s.Pending())
		assert.True(t, s.InputEnabled())
		last := s.Transcript()[len(s.Transcript())-1]
		assert.Equal(t, "Which window?", last.Content)

		s.Handle(AnswerResult{})
		assert.Equal(t, AwaitingAnswer, s.Pending(), "late acknowledgement leaves the new question open")
		assert.Equal(t, StatusWaitingAnswer, s.Status())
	})

	t.Run("answer kept out of history", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "x")
		s.Handle(eventFrame(protocol.EventQuestion, "Which tab?"))
		_, err := s.SubmitAnswer("tab 2")
		require.NoError(t, err)
		assert.Len(t, s.History(), 1)
	})
}

func TestStopTask(t *testing.T) {
	t.Run("idle has nothing to stop", func(t *testing.T) {
		s := newConnected(t)
		_, err := s.StopTask()
		assert.ErrorIs(t, err, ErrIdle)
	})

	t.Run("failure is only logged", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "x")
		effects, err := s.StopTask()
		require.NoError(t, err)
		assert.Equal(t, []Effect{PostStop{}}, effects)

		s.HandleStopResult(errors.New("refused"))
		assert.Equal(t, AwaitingResult, s.Pending())
		assert.Equal(t, StatusThinking, s.Status())
	})

	t.Run("late acknowledgement after the result", func(t *testing.T) {
		s := newConnected(t)
		post := sendTask(t, s, "x")
		_, err := s.StopTask()
		require.NoError(t, err)

		s.HandleChatResult(success(post.TaskID, "done"))
		require.Equal(t, "", s.Status())

		s.HandleStopResult(nil)
		assert.Equal(t, Idle, s.Pending())
		assert.Equal(t, "", s.Status())
	})

	t.Run("stop during a question", func(t *testing.T) {
		s := newConnected(t)
		sendTask(t, s, "x")
		s.Handle(eventFrame(protocol.EventQuestion, "Which tab?"))
		_, err := s.StopTask()
		require.NoError(t, err)
		s.HandleStopResult(nil)
		assert.Equal(t, Idle, s.Pending())
		assert.False(t, s.AnswerMode())
		assert.Equal(t, PlaceholderTask, s.Placeholder())
	})
}

func TestScenario_StopAckBeforeResponse(t *testing.T) {
	s := newConnected(t)
	post := sendTask(t, s, "find cats")
	s.Handle(tokenFrame("thinking"))

	_, err := s.StopTask()
	require.NoError(t, err)
	s.Handle(StopResult{})

	assert.Equal(t, Idle, s.Pending())
	assert.True(t, s.InputEnabled())
	assert.True(t, s.SendVisible())
	assert.False(t, s.StopVisible())
	assert.Equal(t, StatusStopping, s.Status())
	assert.Empty(t, s.Thinking())

	s.Handle(success(post.TaskID, "Task stopped by user."))

	assert.Equal(t, Idle, s.Pending())
	assert.True(t, s.InputEnabled())
	assert.Equal(t, StatusStopping, s.Status())
	assert.Len(t, s.History(), 2)

	// a second delivery of the same response changes nothing
	before := s.Transcript()
	assert.Empty(t, s.Handle(success(post.TaskID, "Task stopped by user.")))
	assert.Equal(t, before, s.Transcript())
}

func TestStaleResponseAfterNewTask(t *testing.T) {
	s := newConnected(t)
	first := sendTask(t, s, "first")
	s.HandleStopResult(nil)
	second := sendTask(t, s, "second")

	s.HandleChatResult(success(first.TaskID, "late"))
	assert.Equal(t, AwaitingResult, s.Pending())
	assert.Equal(t, StatusThinking, s.Status())
	assert.Len(t, s.History(), 2)

	s.HandleChatResult(success(second.TaskID, "done"))
	assert.Equal(t, []protocol.Turn{
		{Role: protocol.RoleUser, Content: "first"},
		{Role: protocol.RoleUser, Content: "second"},
		{Role: protocol.RoleAssistant, Content: "done"},
	}, s.History())
}

func TestClearHistory(t *testing.T) {
	setups := map[string]func(t *testing.T, s *Session){
		"fresh": func(t *testing.T, s *Session) {},
		"after results": func(t *testing.T, s *Session) {
			post := sendTask(t, s, "a")
			s.HandleChatResult(success(post.TaskID, "b"))
		},
		"mid task": func(t *testing.T, s *Session) {
			sendTask(t, s, "a")
			s.Handle(tokenFrame("t"))
		},
		"awaiting answer": func(t *testing.T, s *Session) {
			sendTask(t, s, "a")
			s.Handle(eventFrame(protocol.EventQuestion, "q?"))
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			s := newConnected(t)
			setup(t, s)
			conn, pending, task := s.Connection(), s.Pending(), s.ActiveTask()

			s.ClearHistory()

			assert.Empty(t, s.History())
			transcript := s.Transcript()
			require.Len(t, transcript, 1)
			assert.Equal(t, Greeting, transcript[0].Content)
			assert.Equal(t, conn, s.Connection())
			assert.Equal(t, pending, s.Pending())
			assert.Equal(t, task, s.ActiveTask())
		})
	}
}

func TestDisconnectMidTask(t *testing.T) {
	s := newConnected(t)
	post := sendTask(t, s, "x")
	assert.Equal(t, []Effect{CloseStream{}}, s.HandleProbe(false))
	assert.Equal(t, AwaitingResult, s.Pending())
	assert.False(t, s.InputEnabled())

	assert.Equal(t, []Effect{OpenStream{}}, s.HandleProbe(true))
	s.HandleChatResult(success(post.TaskID, "done"))
	assert.True(t, s.InputEnabled())
}
