package session

import (
	"github.com/dohr-michael/sirius/internal/protocol"
)

// HandleFrame routes one frame from the event subscription. Keepalives and
// malformed payloads leave the state untouched.
func (s *Session) HandleFrame(f protocol.Frame) []Effect {
	if f.Keepalive {
		return nil
	}
	evt, err := protocol.ParseEvent(f.Data)
	if err != nil {
		s.logger.Warn().Err(err).Str("payload", string(f.Data)).Msg("dropping malformed stream event")
		return nil
	}

	switch evt.Type {
	case protocol.EventToken:
		s.appendToken(evt.Content)
	case protocol.EventStatus:
		s.status = evt.Content
	case protocol.EventQuestion:
		s.handleQuestion(evt.Content)
	default:
		s.logger.Debug().Str("type", string(evt.Type)).Msg("ignoring unknown stream event")
	}
	return nil
}

// handleQuestion opens a question. A question arriving while an answer is
// still unacknowledged means the backend consumed that answer and moved on,
// so the acknowledgement is no longer awaited.
func (s *Session) handleQuestion(content string) {
	followUp := s.pending == AwaitingAnswer && s.answerInFlight
	if s.pending != AwaitingResult && !followUp {
		s.logger.Warn().Str("pending", s.pending.String()).Msg("dropping question outside of a running task")
		return
	}
	s.answerInFlight = false
	s.transcript.append(protocol.RoleAssistant, KindQuestion, content)
	s.pending = AwaitingAnswer
	s.status = StatusWaitingAnswer
}
