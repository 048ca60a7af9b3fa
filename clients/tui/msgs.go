package tui

// healthTickMsg triggers one health probe and schedules the next.
type healthTickMsg struct{}

// voiceSubmitMsg fires after the auto-submit delay following final speech.
// Gen ties it to the recognized text it was scheduled for.
type voiceSubmitMsg struct {
	Gen uint64
}

