package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/dohr-michael/sirius/clients/agent"
	"github.com/dohr-michael/sirius/clients/tui/molecules"
	"github.com/dohr-michael/sirius/clients/tui/organisms"
	"github.com/dohr-michael/sirius/internal/prefs"
	"github.com/dohr-michael/sirius/internal/session"
	"github.com/dohr-michael/sirius/internal/voice"
)

// Options wires the panel to its collaborators. Bridge, Speaker and Prefs are
// optional.
type Options struct {
	Session        *session.Session
	Runtime        *agent.Runtime
	Bridge         *voice.Bridge
	Speaker        *voice.Speaker
	Prefs          *prefs.Store
	HealthInterval time.Duration
	SubmitDelay    time.Duration
	Logger         zerolog.Logger
}

// MainModel is the root bubbletea model for the Sirius panel.
type MainModel struct {
	ctx            context.Context
	sess           *session.Session
	rt             *agent.Runtime
	bridge         *voice.Bridge
	speaker        *voice.Speaker
	prefs          *prefs.Store
	healthInterval time.Duration
	submitDelay    time.Duration
	logger         zerolog.Logger

	theme     string
	muted     bool
	hint      string // panel hint, shown when voice has none
	submitGen uint64 // bumped to cancel a pending voice auto-submit
	probing   bool   // a health probe is outstanding
	width     int
	height    int

	chat        organisms.ChatPanel
	interaction organisms.InteractionPanel
	info        organisms.InformationPanel
}

// NewMainModel creates the root model. Persisted preferences are applied here.
func NewMainModel(ctx context.Context, opts Options) MainModel {
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = time.Second
	}
	if opts.Bridge == nil {
		opts.Bridge = voice.NewBridge(nil, "", opts.Logger)
	}

	theme, muted := prefs.ThemeDark, false
	if opts.Prefs != nil {
		theme = opts.Prefs.Theme(ctx)
		muted = opts.Prefs.Muted(ctx)
	}
	ApplyTheme(theme)
	if opts.Speaker != nil {
		opts.Speaker.SetMuted(muted)
	}

	styles := organisms.ChatPanelStyles{
		Assistant:      AssistantStyle,
		User:           UserStyle,
		Error:          ErrorStyle,
		ThinkingBorder: ThinkingBorderStyle,
		Spinner:        ColorThinking,
	}

	m := MainModel{
		ctx:            ctx,
		sess:           opts.Session,
		rt:             opts.Runtime,
		bridge:         opts.Bridge,
		speaker:        opts.Speaker,
		prefs:          opts.Prefs,
		healthInterval: opts.HealthInterval,
		submitDelay:    opts.SubmitDelay,
		logger:         opts.Logger.With().Str("component", "tui").Logger(),
		theme:          theme,
		muted:          muted,
		probing:        true, // Init probes
		chat:           organisms.NewChatPanel(80, 20, theme, styles),
		interaction:    organisms.NewInteractionPanel(opts.Session.Placeholder(), ControlStyle),
		info:           organisms.NewInformationPanel(StatusBarStyle),
	}
	m.sync()
	return m
}

// Init probes the backend, starts the health timer and listens for frames.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		m.thunk(m.rt.Probe()),
		m.tickHealth(),
		m.waitFrame(),
		m.chat.Init(),
	)
}

func (m MainModel) tickHealth() tea.Cmd {
	return tea.Tick(m.healthInterval, func(time.Time) tea.Msg { return healthTickMsg{} })
}

func (m MainModel) waitFrame() tea.Cmd {
	frames := m.rt.Frames()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case f := <-frames:
			return session.StreamFrame{Frame: f}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m MainModel) thunk(t agent.Thunk) tea.Cmd {
	if t == nil {
		return nil
	}
	return func() tea.Msg { return t() }
}

func (m MainModel) waitVoice(w voice.Wait) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg { return w() }
}

// run executes transition effects. Speech is queued directly; everything
// else goes through the runtime.
func (m MainModel) run(effects []session.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, eff := range effects {
		if speak, ok := eff.(session.Speak); ok {
			if m.speaker != nil && !m.muted {
				m.speaker.Speak(speak.Text)
			}
			continue
		}
		cmds = append(cmds, m.thunk(m.rt.Execute(eff)))
	}
	return tea.Batch(cmds...)
}

// Update processes all incoming messages.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := m.height - 3 // input(1) + controls(1) + statusbar(1)
		if viewportHeight < 1 {
			viewportHeight = 1
		}
		m.chat.SetSize(m.width, viewportHeight)
		m.interaction.SetWidth(m.width)
		m.info.SetWidth(m.width)
		m.sync()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case healthTickMsg:
		// A slow probe may outlive the interval; overlapping probes could
		// resolve out of order.
		if m.probing {
			return m, m.tickHealth()
		}
		m.probing = true
		return m, tea.Batch(m.thunk(m.rt.Probe()), m.tickHealth())

	case session.ProbeResult:
		m.probing = false
		cmd := m.run(m.sess.Handle(msg))
		m.sync()
		return m, cmd

	case session.StreamFrame:
		cmd := m.run(m.sess.Handle(msg))
		m.sync()
		return m, tea.Batch(cmd, m.waitFrame())

	case session.ChatResult, session.StopResult, session.AnswerResult:
		cmd := m.run(m.sess.Handle(msg))
		m.sync()
		return m, cmd

	case voice.Event:
		return m.handleVoice(msg)

	case voiceSubmitMsg:
		if msg.Gen != m.submitGen || !m.sess.InputEnabled() {
			return m, nil
		}
		text := m.interaction.Value()
		m.interaction.Reset()
		return m.submit(text)

	case molecules.SubmitMsg:
		return m.handleSubmit(msg)

	}

	// Pass through to chat panel (spinner ticks, caret, viewport) and input (cursor blink).
	var chatCmd, inputCmd tea.Cmd
	m.chat, chatCmd = m.chat.Update(msg)
	m.interaction, inputCmd = m.interaction.Update(msg)
	return m, tea.Batch(chatCmd, inputCmd)
}

func (m MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()

	case tea.KeyCtrlX:
		return m.stop()

	case tea.KeyCtrlL:
		m.sess.ClearHistory()
		m.sync()
		return m, nil

	case tea.KeyCtrlO:
		m.sess.ToggleThinking()
		m.sync()
		return m, nil

	case tea.KeyCtrlV:
		return m.toggleVoice()

	case tea.KeyCtrlS:
		return m.toggleMute()

	case tea.KeyCtrlT:
		return m.toggleTheme()

	case tea.KeyCtrlP:
		if err := m.bridge.Remediate(m.ctx); err != nil {
			m.logger.Warn().Err(err).Msg("microphone remediation")
		}
		m.sync()
		return m, nil

	case tea.KeyPgUp:
		m.chat.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.chat.PageDown()
		return m, nil
	}

	if !m.sess.InputEnabled() {
		return m, nil
	}
	before := m.interaction.Value()
	var cmd tea.Cmd
	m.interaction, cmd = m.interaction.Update(msg)
	if m.interaction.Value() != before {
		m.submitGen++
	}
	return m, cmd
}

func (m MainModel) handleSubmit(msg molecules.SubmitMsg) (tea.Model, tea.Cmd) {
	m.hint = ""
	if strings.HasPrefix(msg.Content, "/") && !m.sess.AnswerMode() {
		return m.handleSlashCommand(msg.Content)
	}
	return m.submit(msg.Content)
}

// submit routes text to a new task, or to the pending question in answer mode.
func (m MainModel) submit(text string) (tea.Model, tea.Cmd) {
	effects, err := m.sess.Submit(text)
	if err != nil {
		if !errors.Is(err, session.ErrEmptyInput) {
			m.logger.Debug().Err(err).Msg("submit rejected")
		}
		m.sync()
		return m, nil
	}
	cmd := m.run(effects)
	m.sync()
	return m, cmd
}

func (m MainModel) stop() (tea.Model, tea.Cmd) {
	effects, err := m.sess.StopTask()
	if err != nil {
		m.logger.Debug().Err(err).Msg("stop ignored")
		return m, nil
	}
	return m, m.run(effects)
}

func (m MainModel) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(cmd)
	command := parts[0]

	switch command {
	case "/quit":
		return m.quit()

	case "/clear":
		m.sess.ClearHistory()
		m.sync()
		return m, nil

	case "/stop":
		return m.stop()

	case "/mute":
		return m.toggleMute()

	case "/theme":
		return m.toggleTheme()

	default:
		m.hint = fmt.Sprintf("Unknown command: %s", command)
		m.sync()
		return m, nil
	}
}

func (m MainModel) toggleVoice() (tea.Model, tea.Cmd) {
	if !m.bridge.Available() {
		return m, nil
	}
	m.submitGen++
	wait, err := m.bridge.Toggle(m.ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("start listening")
	}
	m.sync()
	return m, m.waitVoice(wait)
}

func (m MainModel) handleVoice(ev voice.Event) (tea.Model, tea.Cmd) {
	outcome, wait := m.bridge.Handle(ev)

	var cmds []tea.Cmd
	if outcome.Text != "" {
		m.interaction.SetValue(voice.MergeTranscript(m.interaction.Value(), outcome.Text))
	}
	if outcome.Submit {
		m.submitGen++
		gen := m.submitGen
		cmds = append(cmds, tea.Tick(m.submitDelay, func(time.Time) tea.Msg {
			return voiceSubmitMsg{Gen: gen}
		}))
	}
	cmds = append(cmds, m.waitVoice(wait))
	m.sync()
	return m, tea.Batch(cmds...)
}

func (m MainModel) toggleMute() (tea.Model, tea.Cmd) {
	m.muted = !m.muted
	if m.speaker != nil {
		m.speaker.SetMuted(m.muted)
	}
	if m.prefs != nil {
		if err := m.prefs.SetMuted(m.ctx, m.muted); err != nil {
			m.logger.Error().Err(err).Msg("save mute preference")
		}
	}
	m.sync()
	return m, nil
}

func (m MainModel) toggleTheme() (tea.Model, tea.Cmd) {
	m.theme = prefs.ToggleTheme(m.theme)
	ApplyTheme(m.theme)
	m.chat.SetTheme(m.theme)
	if m.prefs != nil {
		if err := m.prefs.SetTheme(m.ctx, m.theme); err != nil {
			m.logger.Error().Err(err).Msg("save theme preference")
		}
	}
	m.sync()
	return m, nil
}

func (m MainModel) quit() (tea.Model, tea.Cmd) {
	m.bridge.Cancel()
	if m.speaker != nil {
		m.speaker.Cancel()
	}
	m.rt.Close()
	return m, tea.Quit
}

// sync projects session and voice state onto the widgets.
func (m *MainModel) sync() {
	m.chat.Sync(m.sess.Transcript(), m.liveThinking())

	m.interaction.SetEnabled(m.sess.InputEnabled())
	m.interaction.SetPlaceholder(m.bridge.Placeholder(m.sess.Placeholder()))
	m.interaction.SetControls(organisms.Controls{
		Send:        m.sess.SendVisible(),
		Stop:        m.sess.StopVisible(),
		Voice:       m.bridge.Available(),
		Listening:   m.bridge.State() == voice.Listening,
		Remediation: m.bridge.RemediationOffered(),
	})

	m.info.SetConnected(m.sess.Connection() == session.Connected)
	m.info.SetStatus(m.sess.Status())
	m.info.SetMode(modeFor(m.sess))
	m.info.SetVoice(m.bridge.State() == voice.Listening, m.muted)
	m.info.SetTheme(m.theme)
	hint := m.bridge.Hint()
	if hint == "" {
		hint = m.hint
	}
	m.info.SetHint(hint)
}

// liveThinking returns the transcript ID of the thinking region still
// receiving tokens: the latest one, while a task is outstanding.
func (m *MainModel) liveThinking() int {
	if m.sess.ActiveTask() == 0 || m.sess.Thinking() == "" {
		return 0
	}
	msgs := m.sess.Transcript()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Kind == session.KindThinking {
			return msgs[i].ID
		}
	}
	return 0
}

func modeFor(s *session.Session) organisms.Mode {
	switch s.Pending() {
	case session.AwaitingResult:
		return organisms.ModeWorking
	case session.AwaitingAnswer:
		return organisms.ModeAnswering
	default:
		return organisms.ModeNormal
	}
}

// View renders the full TUI layout.
func (m MainModel) View() string {
	return fmt.Sprintf("%s\n%s\n%s", m.chat.View(), m.interaction.View(), m.info.View())
}

// Run starts the panel and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	model := NewMainModel(ctx, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run panel: %w", err)
	}
	return nil
}
