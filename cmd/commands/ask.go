package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/sirius/clients/agent"
	"github.com/dohr-michael/sirius/internal/protocol"
	"github.com/dohr-michael/sirius/internal/session"
)

// streamWarmup bounds how long ask waits for the event stream before
// dispatching, so early tokens and questions are not missed.
const streamWarmup = 2 * time.Second

// ErrNotInteractive is returned when the agent asks a question that cannot
// be answered because stdin is not a terminal.
var ErrNotInteractive = errors.New("agent asked a question but stdin is not a terminal")

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Run one task without the panel and print the result",
		ArgsUsage: "<task>",
		Action:    runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	task := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if task == "" {
		return fmt.Errorf("usage: sirius ask <task>")
	}

	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.log.Close()

	client, logger := e.client("ask")
	if _, err := client.Health(ctx); err != nil {
		return fmt.Errorf("agent server at %s: %w", client.BaseURL(), err)
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	var answers answerSource
	if term.IsTerminal(int(os.Stdin.Fd())) {
		answers = stdinAnswers(os.Stdin)
	}

	// Ctrl+C is turned into a stop request, so the run must outlive the
	// command context's interrupt cancellation.
	result, err := askTask(context.WithoutCancel(ctx), askOptions{
		Client:         client,
		Task:           task,
		HealthInterval: e.cfg.Backend.HealthInterval.Duration(),
		ReconnectDelay: e.cfg.Backend.ReconnectDelay.Duration(),
		Progress:       os.Stderr,
		Answers:        answers,
		Interrupts:     interrupts,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, result)
	return nil
}

// answerSource prompts for the answer to question and delivers it once.
type answerSource func(question string) <-chan string

func stdinAnswers(in io.Reader) answerSource {
	scanner := bufio.NewScanner(in)
	return func(string) <-chan string {
		ch := make(chan string, 1)
		go func() {
			if scanner.Scan() {
				ch <- scanner.Text()
			}
			close(ch)
		}()
		return ch
	}
}

type askOptions struct {
	Client         *agent.Client
	Task           string
	HealthInterval time.Duration
	ReconnectDelay time.Duration
	Progress       io.Writer
	Answers        answerSource // nil when questions cannot be answered
	Interrupts     <-chan os.Signal
	Logger         zerolog.Logger
}

// askTask drives one task through the session controller with a select loop
// standing in for the panel's event loop. It returns the agent's result.
func askTask(ctx context.Context, opts askOptions) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt := agent.NewRuntime(ctx, opts.Client, opts.ReconnectDelay)
	defer rt.Close()

	s := session.New(opts.Logger)
	results := make(chan any, 8)
	run := func(effects []session.Effect) {
		for _, eff := range effects {
			if thunk := rt.Execute(eff); thunk != nil {
				go forward(ctx, results, thunk)
			}
		}
	}

	run(s.HandleProbe(true))
	if f, ok := firstFrame(rt.Frames(), streamWarmup); ok {
		run(s.Handle(session.StreamFrame{Frame: f}))
	} else {
		opts.Logger.Debug().Msg("no stream frame before dispatch")
	}

	effects, err := s.SendTask(opts.Task)
	if err != nil {
		return "", err
	}
	taskID := s.ActiveTask()
	run(effects)

	health := time.NewTicker(opts.HealthInterval)
	defer health.Stop()

	p := &progressPrinter{out: opts.Progress}
	var answers <-chan string
	stopping := false
	probing := false

	for {
		select {
		case f := <-rt.Frames():
			run(s.Handle(session.StreamFrame{Frame: f}))

		case res := <-results:
			if _, ok := res.(session.ProbeResult); ok {
				probing = false
			}
			run(s.Handle(res))
			if chat, ok := res.(session.ChatResult); ok && chat.TaskID == taskID {
				p.finish()
				return taskOutcome(chat)
			}

		case <-health.C:
			// skip while the previous probe is outstanding so results stay ordered
			if !probing {
				probing = true
				go forward(ctx, results, rt.Probe())
			}

		case text, ok := <-answers:
			answers = nil
			if !ok {
				stopTask(rt)
				return "", fmt.Errorf("%w: stdin closed", ErrNotInteractive)
			}
			effects, err := s.SubmitAnswer(text)
			if err != nil {
				opts.Logger.Warn().Err(err).Msg("answer rejected")
				continue
			}
			run(effects)

		case <-opts.Interrupts:
			if stopping {
				return "", fmt.Errorf("interrupted")
			}
			stopping = true
			fmt.Fprintln(opts.Progress, "\nStopping... press Ctrl+C again to abort.")
			if effects, err := s.StopTask(); err == nil {
				run(effects)
			}
		}

		p.update(s)

		if answers == nil && s.AnswerMode() && s.InputEnabled() {
			q := lastQuestion(s)
			if opts.Answers == nil {
				stopTask(rt)
				return "", fmt.Errorf("%w: %s", ErrNotInteractive, q)
			}
			p.newline()
			fmt.Fprintf(opts.Progress, "? %s\n> ", q)
			answers = opts.Answers(q)
		}
	}
}

// forward runs thunk and hands its result to the loop, unless the loop is gone.
func forward(ctx context.Context, results chan<- any, thunk agent.Thunk) {
	msg := thunk()
	select {
	case results <- msg:
	case <-ctx.Done():
	}
}

// firstFrame waits up to timeout for the stream's first frame.
func firstFrame(frames <-chan protocol.Frame, timeout time.Duration) (protocol.Frame, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-frames:
		return f, true
	case <-timer.C:
		return protocol.Frame{}, false
	}
}

// stopTask sends the cancellation signal synchronously before ask gives up.
func stopTask(rt *agent.Runtime) {
	if thunk := rt.Execute(session.PostStop{}); thunk != nil {
		thunk()
	}
}

func lastQuestion(s *session.Session) string {
	msgs := s.Transcript()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Kind == session.KindQuestion {
			return msgs[i].Content
		}
	}
	return ""
}

func taskOutcome(res session.ChatResult) (string, error) {
	if res.Err != nil {
		return "", fmt.Errorf("%s: %w", session.MessageUnreachable, res.Err)
	}
	if !res.Response.Succeeded() {
		return "", agent.NewTaskError(res.Response, session.MessageTaskFailed)
	}
	return res.Response.Result, nil
}

// progressPrinter mirrors status changes and thinking output to stderr.
type progressPrinter struct {
	out      io.Writer
	status   string
	thinking int  // bytes of the thinking buffer already printed
	midLine  bool // thinking output left the cursor mid-line
}

func (p *progressPrinter) update(s *session.Session) {
	if st := s.Status(); st != p.status {
		p.status = st
		if st != "" {
			p.newline()
			fmt.Fprintf(p.out, "» %s\n", st)
		}
	}

	th := s.Thinking()
	if len(th) < p.thinking {
		p.thinking = 0
	}
	if len(th) > p.thinking {
		chunk := th[p.thinking:]
		fmt.Fprint(p.out, chunk)
		p.thinking = len(th)
		p.midLine = !strings.HasSuffix(chunk, "\n")
	}
}

func (p *progressPrinter) newline() {
	if p.midLine {
		fmt.Fprintln(p.out)
		p.midLine = false
	}
}

func (p *progressPrinter) finish() {
	p.newline()
}
