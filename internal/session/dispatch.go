package session

import (
	"errors"
	"strings"

	"github.com/dohr-michael/sirius/internal/protocol"
)

// Submit routes the input field's content: to the answer endpoint while a
// question is pending, otherwise as a new task.
func (s *Session) Submit(text string) ([]Effect, error) {
	if s.pending == AwaitingAnswer {
		return s.SubmitAnswer(text)
	}
	return s.SendTask(text)
}

// SendTask dispatches a new task carrying the full history. On success the
// caller clears the input field.
func (s *Session) SendTask(text string) ([]Effect, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, ErrEmptyInput
	case s.conn != Connected:
		return nil, ErrDisconnected
	case s.pending != Idle:
		return nil, ErrBusy
	}

	s.history = append(s.history, protocol.Turn{Role: protocol.RoleUser, Content: text})
	s.transcript.append(protocol.RoleUser, KindText, text)
	s.status = StatusThinking
	s.discardThinking()

	s.lastTask++
	s.activeTask = s.lastTask
	s.stoppedTask = 0
	s.pending = AwaitingResult

	return []Effect{PostChat{
		TaskID: s.activeTask,
		Request: protocol.ChatRequest{
			Query:       text,
			ChatHistory: s.History(),
		},
	}}, nil
}

// HandleChatResult applies the outcome of a task request.
//
// A response for a task that was reset by stop is appended to the
// conversation when it succeeded and no newer task was dispatched since, but
// it never touches the controls or the status line. Any other stale
// response is dropped.
func (s *Session) HandleChatResult(res ChatResult) []Effect {
	if res.TaskID == 0 || res.TaskID != s.activeTask {
		return s.handleStaleResult(res)
	}

	var effects []Effect
	switch {
	case res.Err != nil && !errors.Is(res.Err, protocol.ErrMalformedResponse):
		s.logger.Error().Err(res.Err).Uint64("task", res.TaskID).Msg("task request failed")
		s.transcript.append(protocol.RoleAssistant, KindError, MessageUnreachable)
	case res.Err == nil && res.Response.Succeeded():
		effects = s.appendResult(res.Response.Result)
	default:
		msg := failureMessage(res.Response)
		s.logger.Warn().Err(res.Err).Uint64("task", res.TaskID).Str("message", msg).Msg("task failed")
		s.transcript.append(protocol.RoleAssistant, KindError, msg)
	}

	s.status = ""
	s.resetTask()
	return effects
}

func (s *Session) handleStaleResult(res ChatResult) []Effect {
	log := s.logger.With().Uint64("task", res.TaskID).Logger()
	if res.TaskID != s.stoppedTask || s.activeTask != 0 {
		log.Debug().Msg("dropping response of a superseded task")
		return nil
	}
	s.stoppedTask = 0
	if res.Err != nil || !res.Response.Succeeded() {
		log.Debug().Err(res.Err).Msg("dropping failed response of a stopped task")
		return nil
	}
	log.Debug().Msg("recording late result of a stopped task")
	return s.appendResult(res.Response.Result)
}

func (s *Session) appendResult(result string) []Effect {
	s.history = append(s.history, protocol.Turn{Role: protocol.RoleAssistant, Content: result})
	s.transcript.append(protocol.RoleAssistant, KindText, result)
	return []Effect{Speak{Text: result}}
}

func failureMessage(resp *protocol.ChatResponse) string {
	if resp == nil {
		return MessageTaskFailed
	}
	if resp.Message != "" {
		return resp.Message
	}
	if detail := resp.DetailText(); detail != "" {
		return detail
	}
	return MessageTaskFailed
}

func (s *Session) resetTask() {
	s.activeTask = 0
	s.pending = Idle
	s.answerInFlight = false
	s.discardThinking()
}

// StopTask sends the cancellation signal for the running task.
func (s *Session) StopTask() ([]Effect, error) {
	if s.pending == Idle {
		return nil, ErrIdle
	}
	return []Effect{PostStop{}}, nil
}

// HandleStopResult applies the stop acknowledgement. The UI returns to idle
// right away; the task response may still arrive later.
func (s *Session) HandleStopResult(err error) []Effect {
	if err != nil {
		s.logger.Warn().Err(err).Msg("stop request failed")
		return nil
	}
	if s.pending != Idle {
		s.status = StatusStopping
		s.stoppedTask = s.activeTask
		s.resetTask()
	}
	return nil
}
