package session

import (
	"strings"

	"github.com/dohr-michael/sirius/internal/protocol"
)

// SubmitAnswer posts the user's reply to the pending question. The reply is
// shown in the transcript but kept out of the history: the task that asked
// is still the one the next history entry answers.
func (s *Session) SubmitAnswer(text string) ([]Effect, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, ErrEmptyInput
	case s.pending != AwaitingAnswer:
		return nil, ErrNotAsked
	case s.answerInFlight:
		return nil, ErrBusy
	}

	s.transcript.append(protocol.RoleUser, KindText, text)
	s.answerInFlight = true
	s.answerStatus = s.status
	return []Effect{PostAnswer{Text: text}}, nil
}

// HandleAnswerResult applies the outcome of an answer submission. On success
// the task resumes; on failure the question stays open for a retry.
func (s *Session) HandleAnswerResult(err error) []Effect {
	if !s.answerInFlight {
		// Reset by a stop or a terminal task response in the meantime.
		return nil
	}
	s.answerInFlight = false

	if err != nil {
		s.logger.Warn().Err(err).Msg("answer request failed")
		s.status = StatusAnswerFailed
		return nil
	}
	s.pending = AwaitingResult
	if s.status == s.answerStatus {
		s.status = StatusAnswerSent
	}
	return nil
}
