package session

import "github.com/dohr-michael/sirius/internal/protocol"

// MessageKind distinguishes how a transcript entry is rendered.
type MessageKind int

const (
	KindText MessageKind = iota
	KindError
	KindQuestion
	KindThinking
)

// Message is one displayed transcript entry.
type Message struct {
	ID        int
	Role      protocol.Role
	Kind      MessageKind
	Content   string
	Collapsed bool
}

type transcript struct {
	msgs   []Message
	nextID int
}

func (t *transcript) reset(greeting string) {
	t.msgs = t.msgs[:0]
	t.append(protocol.RoleAssistant, KindText, greeting)
}

func (t *transcript) append(role protocol.Role, kind MessageKind, content string) int {
	t.nextID++
	t.msgs = append(t.msgs, Message{ID: t.nextID, Role: role, Kind: kind, Content: content})
	return t.nextID
}

func (t *transcript) find(id int) *Message {
	for i := range t.msgs {
		if t.msgs[i].ID == id {
			return &t.msgs[i]
		}
	}
	return nil
}

func (t *transcript) collapseThinking() {
	for i := range t.msgs {
		if t.msgs[i].Kind == KindThinking {
			t.msgs[i].Collapsed = true
		}
	}
}

func (t *transcript) snapshot() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// ToggleThinking flips the collapsed flag of the most recent thinking region.
// It reports false when the transcript holds no thinking region.
func (s *Session) ToggleThinking() bool {
	for i := len(s.transcript.msgs) - 1; i >= 0; i-- {
		if s.transcript.msgs[i].Kind == KindThinking {
			s.transcript.msgs[i].Collapsed = !s.transcript.msgs[i].Collapsed
			return true
		}
	}
	return false
}

// ClearHistory empties the conversation history and resets the transcript to
// the greeting. Connection, pending state and in-flight requests are untouched.
func (s *Session) ClearHistory() {
	s.history = nil
	s.transcript.reset(Greeting)
	if s.thinking != nil {
		s.thinking.regionID = 0
	}
}
