package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohr-michael/sirius/clients/ws"
	"github.com/dohr-michael/sirius/internal/config"
)

const (
	audioChunkSize      = 4096
	defaultCloseTimeout = 5 * time.Second
)

// Deepgram recognizes speech through the Deepgram streaming listen API. Audio
// comes from an external capture command writing raw 16kHz mono linear16 PCM
// to stdout.
type Deepgram struct {
	cfg          config.DeepgramConfig
	capture      []string
	closeTimeout time.Duration
	logger       zerolog.Logger
}

// NewDeepgram builds a recognizer. It returns ErrUnavailable when no API key
// or capture command is configured.
func NewDeepgram(cfg config.DeepgramConfig, captureCommand string, logger zerolog.Logger) (*Deepgram, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no Deepgram API key", ErrUnavailable)
	}
	capture, err := SplitCommand(captureCommand)
	if err != nil {
		return nil, err
	}
	if len(capture) == 0 {
		return nil, fmt.Errorf("%w: no capture command", ErrUnavailable)
	}
	if cfg.URL == "" {
		cfg.URL = config.DefaultDeepgramURL
	}
	return &Deepgram{
		cfg:          cfg,
		capture:      capture,
		closeTimeout: defaultCloseTimeout,
		logger:       logger.With().Str("component", "voice").Logger(),
	}, nil
}

func (d *Deepgram) listenURL() (string, error) {
	u, err := url.Parse(d.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse deepgram url: %w", err)
	}
	q := u.Query()
	q.Set("encoding", "linear16")
	q.Set("sample_rate", "16000")
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	if d.cfg.Model != "" {
		q.Set("model", d.cfg.Model)
	}
	if d.cfg.Language != "" {
		q.Set("language", d.cfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Listen connects to Deepgram and starts the capture command.
func (d *Deepgram) Listen(ctx context.Context) (Listener, error) {
	target, err := d.listenURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Add("Authorization", "token "+d.cfg.APIKey)

	conn, err := ws.Dial(ctx, target, header)
	if err != nil {
		return nil, fmt.Errorf("connect to deepgram: %w", err)
	}

	captureCtx, stopCapture := context.WithCancel(ctx)
	cmd := exec.CommandContext(captureCtx, d.capture[0], d.capture[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	killProcessGroup(cmd)
	cmd.WaitDelay = stopGrace
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stopCapture()
		conn.CloseNow()
		return nil, fmt.Errorf("capture stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stopCapture()
		conn.CloseNow()
		return nil, fmt.Errorf("%w: start capture: %v", ErrUnavailable, err)
	}

	l := &deepgramListener{
		conn:         conn,
		results:      make(chan Result, 32),
		done:         make(chan struct{}),
		stopCapture:  stopCapture,
		closeTimeout: d.closeTimeout,
		logger:       d.logger,
	}
	go l.pump(captureCtx, cmd, stdout, &stderr)
	go l.read(ctx)

	d.logger.Debug().Str("command", d.capture[0]).Msg("voice capture started")
	return l, nil
}

type deepgramListener struct {
	conn         *ws.Client
	results      chan Result
	done         chan struct{}
	stopCapture  context.CancelFunc
	closeTimeout time.Duration
	logger       zerolog.Logger

	mu         sync.Mutex
	captureErr error
}

type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	// SpeechFinal marks the end of an utterance (endpointing).
	SpeechFinal bool `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type controlMessage struct {
	Type string `json:"type"`
}

func (l *deepgramListener) Results() <-chan Result { return l.results }

func (l *deepgramListener) Stop() { l.stopCapture() }

func (l *deepgramListener) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.captureErr == nil {
		l.captureErr = err
	}
}

func (l *deepgramListener) failure() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.captureErr
}

// pump forwards captured audio until the capture command exits, then asks
// Deepgram to flush and close the stream.
func (l *deepgramListener) pump(captureCtx context.Context, cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer) {
	buf := make([]byte, audioChunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if werr := l.conn.WriteBinary(buf[:n]); werr != nil {
				l.logger.Debug().Err(werr).Msg("audio write failed")
				l.stopCapture()
				break
			}
		}
		if err != nil {
			break
		}
	}

	waitErr := cmd.Wait()
	if waitErr != nil && captureCtx.Err() == nil {
		msg := strings.TrimSpace(stderr.String())
		if isPermissionDenied(msg) {
			l.fail(ErrPermissionDenied)
		} else {
			l.fail(fmt.Errorf("capture command: %w: %s", waitErr, msg))
		}
		l.conn.Close()
		return
	}

	if err := l.conn.WriteJSON(controlMessage{Type: "CloseStream"}); err != nil {
		l.logger.Debug().Err(err).Msg("close stream request failed")
	}

	select {
	case <-l.done:
	case <-time.After(l.closeTimeout):
		l.logger.Warn().Msg("deepgram did not close the stream in time")
		l.conn.CloseNow()
	}
}

func (l *deepgramListener) read(ctx context.Context) {
	defer close(l.done)
	defer close(l.results)

	var text string
	for {
		var msg deepgramMessage
		if err := l.conn.ReadJSON(&msg); err != nil {
			l.stopCapture()
			l.emit(ctx, l.terminal(text, err))
			return
		}
		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		transcript := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript)
		if transcript != "" {
			if msg.IsFinal {
				text = MergeTranscript(text, transcript)
				l.emit(ctx, Result{Text: text})
			} else {
				l.emit(ctx, Result{Text: MergeTranscript(text, transcript)})
			}
		}
		if msg.SpeechFinal && text != "" {
			l.Stop()
		}
	}
}

func (l *deepgramListener) terminal(text string, err error) Result {
	if cerr := l.failure(); cerr != nil {
		return Result{Err: cerr}
	}
	if text != "" {
		return Result{Text: text, Final: true}
	}
	if ws.IsNormalClosure(err) {
		return Result{Err: ErrNoSpeech}
	}
	return Result{Err: fmt.Errorf("deepgram stream: %w", err)}
}

func (l *deepgramListener) emit(ctx context.Context, r Result) {
	select {
	case l.results <- r:
	case <-ctx.Done():
	}
}
