package session

import (
	"strings"

	"github.com/dohr-michael/sirius/internal/protocol"
)

// thinkingBuffer accumulates the streamed output of one task. regionID is the
// transcript entry mirroring it, 0 once that entry was cleared away.
type thinkingBuffer struct {
	taskID   uint64
	regionID int
	text     strings.Builder
}

// Thinking returns the buffered output of the active task.
func (s *Session) Thinking() string {
	if s.thinking == nil {
		return ""
	}
	return s.thinking.text.String()
}

func (s *Session) appendToken(token string) {
	if s.activeTask == 0 {
		s.logger.Debug().Msg("dropping token without an active task")
		return
	}
	if s.thinking == nil || s.thinking.taskID != s.activeTask {
		s.thinking = &thinkingBuffer{taskID: s.activeTask}
	}
	s.thinking.text.WriteString(token)

	if region := s.transcript.find(s.thinking.regionID); region != nil {
		region.Content = s.thinking.text.String()
		return
	}
	s.transcript.collapseThinking()
	s.thinking.regionID = s.transcript.append(protocol.RoleAssistant, KindThinking, s.thinking.text.String())
}

func (s *Session) discardThinking() {
	s.thinking = nil
}
