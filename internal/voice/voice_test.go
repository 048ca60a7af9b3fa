package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTranscript(t *testing.T) {
	tests := []struct {
		name, current, final, want string
	}{
		{"empty input", "", "open the calendar", "open the calendar"},
		{"adds separator", "please", "open the calendar", "please open the calendar"},
		{"keeps existing space", "please ", "open it", "please open it"},
		{"keeps trailing tab", "please\t", "open it", "please\topen it"},
		{"keeps trailing newline", "please\n", "open it", "please\nopen it"},
		{"keeps unicode space", "please\u00a0", "open it", "please\u00a0open it"},
		{"trims final", "go", "  now ", "go now"},
		{"empty final", "unchanged", "  ", "unchanged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeTranscript(tt.current, tt.final))
		})
	}
}

func TestSplitCommand(t *testing.T) {
	t.Setenv("SIRIUS_TEST_DEVICE", "hw:1")

	args, err := SplitCommand(`arecord -D "$SIRIUS_TEST_DEVICE" -f S16_LE -t 'raw'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"arecord", "-D", "hw:1", "-f", "S16_LE", "-t", "raw"}, args)

	args, err = SplitCommand("   ")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = SplitCommand(`say "unterminated`)
	assert.Error(t, err)
}

func TestIsPermissionDenied(t *testing.T) {
	assert.True(t, isPermissionDenied("arecord: main:830: audio open error: Permission denied"))
	assert.True(t, isPermissionDenied("Operation not permitted"))
	assert.False(t, isPermissionDenied("No such device"))
}

func TestResultTerminal(t *testing.T) {
	assert.False(t, Result{Text: "interim"}.Terminal())
	assert.True(t, Result{Text: "done", Final: true}.Terminal())
	assert.True(t, Result{Err: ErrNoSpeech}.Terminal())
}
