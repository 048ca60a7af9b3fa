package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/sirius/clients/agent"
	"github.com/dohr-michael/sirius/internal/devserver"
	"github.com/dohr-michael/sirius/internal/heartbeat"
	"github.com/dohr-michael/sirius/internal/prefs"
	"github.com/dohr-michael/sirius/internal/protocol"
	"github.com/dohr-michael/sirius/internal/session"
)

func newDevClient(t *testing.T) *agent.Client {
	t.Helper()
	srv := devserver.New(devserver.Options{
		Keepalive: 20 * time.Millisecond,
		StepDelay: time.Millisecond,
		Logger:    zerolog.Nop(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Close)
	return agent.New(ts.URL)
}

func askOpts(client *agent.Client, task string, progress *bytes.Buffer) askOptions {
	return askOptions{
		Client:         client,
		Task:           task,
		HealthInterval: 50 * time.Millisecond,
		ReconnectDelay: 10 * time.Millisecond,
		Progress:       progress,
		Logger:         zerolog.Nop(),
	}
}

func TestAskTask(t *testing.T) {
	var progress bytes.Buffer
	result, err := askTask(context.Background(), askOpts(newDevClient(t), "open the news", &progress))
	require.NoError(t, err)
	assert.Equal(t, "Done: open the news", result)
	assert.Contains(t, progress.String(), "» Planning the task...")
}

func TestAskTaskFailure(t *testing.T) {
	var progress bytes.Buffer
	_, err := askTask(context.Background(), askOpts(newDevClient(t), "fail loudly", &progress))

	var taskErr *agent.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Contains(t, taskErr.Message, "fail loudly")
}

func TestAskTaskQuestion(t *testing.T) {
	var progress bytes.Buffer
	opts := askOpts(newDevClient(t), "which flight?", &progress)

	var asked []string
	opts.Answers = func(q string) <-chan string {
		asked = append(asked, q)
		ch := make(chan string, 1)
		ch <- "the early one"
		return ch
	}

	result, err := askTask(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{devserver.DefaultQuestion}, asked)
	assert.Equal(t, `Done: which flight? (you picked "the early one")`, result)
}

func TestAskTaskQuestionNotInteractive(t *testing.T) {
	var progress bytes.Buffer
	_, err := askTask(context.Background(), askOpts(newDevClient(t), "which seat?", &progress))
	assert.True(t, errors.Is(err, ErrNotInteractive))
}

func TestAskTaskInterrupt(t *testing.T) {
	var progress bytes.Buffer
	opts := askOpts(newDevClient(t), "long question?", &progress)
	interrupts := make(chan os.Signal, 1)
	opts.Interrupts = interrupts
	opts.Answers = func(string) <-chan string {
		interrupts <- os.Interrupt
		return make(chan string)
	}

	result, err := askTask(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, devserver.ResultStopped, result)
	assert.Contains(t, progress.String(), "Stopping...")
}

func TestFirstFrameKeepsTheFrame(t *testing.T) {
	frames := make(chan protocol.Frame, 1)
	frames <- protocol.Frame{Data: []byte(`{"type":"status","content":"Warming up"}`)}

	f, ok := firstFrame(frames, time.Second)
	require.True(t, ok)
	assert.Equal(t, `{"type":"status","content":"Warming up"}`, string(f.Data))

	_, ok = firstFrame(frames, 10*time.Millisecond)
	assert.False(t, ok)
}

func TestForwardGivesUpAfterReturn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		forward(ctx, make(chan any), func() any { return session.StopResult{} })
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forward blocked on a loop that already returned")
	}
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStatus(context.Background(), &out, newDevClient(t)))
	assert.Contains(t, out.String(), "Agent server: ALIVE")
	assert.Contains(t, out.String(), "Worker alive: true")

	out.Reset()
	err := printStatus(context.Background(), &out, agent.New("http://127.0.0.1:1"))
	assert.Error(t, err)
	assert.Contains(t, out.String(), "UNREACHABLE")
}

func TestPrintDevServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devserver.heartbeat")

	var out bytes.Buffer
	printDevServer(&out, path)
	assert.Empty(t, out.String())

	beat := heartbeat.NewWriter(path, "127.0.0.1:8123", time.Minute, zerolog.Nop())
	require.NoError(t, beat.Start())
	defer beat.Stop()

	printDevServer(&out, path)
	assert.Contains(t, out.String(), "Local devserver: alive on 127.0.0.1:8123")
}

func TestPrefsCommands(t *testing.T) {
	ctx := context.Background()
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, setPref(ctx, store, "theme", "light"))
	require.NoError(t, setPref(ctx, store, "muted", "on"))
	assert.Error(t, setPref(ctx, store, "theme", "sepia"))
	assert.Error(t, setPref(ctx, store, "muted", "maybe"))

	var out bytes.Buffer
	require.NoError(t, printPrefs(ctx, &out, store, ""))
	assert.Equal(t, "muted=true\ntheme=light\n", out.String())

	out.Reset()
	require.NoError(t, printPrefs(ctx, &out, store, "theme"))
	assert.Equal(t, "light\n", out.String())

	assert.ErrorIs(t, printPrefs(ctx, &out, store, "volume"), prefs.ErrNotFound)
}
