package organisms

// Mode represents the current interaction state.
type Mode int

const (
	ModeNormal    Mode = iota
	ModeWorking        // waiting for a task result
	ModeAnswering      // waiting for the user's answer to a question
)

func (m Mode) String() string {
	switch m {
	case ModeWorking:
		return "working"
	case ModeAnswering:
		return "answering"
	default:
		return ""
	}
}
