package organisms

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/sirius/clients/tui/atoms"
	"github.com/dohr-michael/sirius/internal/protocol"
	"github.com/dohr-michael/sirius/internal/session"
)

// Role labels shown in the conversation.
const (
	LabelUser      = "You"
	LabelAssistant = "Sirius"
	LabelError     = "Error"
	LabelQuestion  = "Sirius asks"
)

// ChatPanelStyles contains the styles injected into the ChatPanel.
type ChatPanelStyles struct {
	Assistant      lipgloss.Style
	User           lipgloss.Style
	Error          lipgloss.Style
	ThinkingBorder lipgloss.Style
	Spinner        lipgloss.AdaptiveColor
}

// ChatPanel mirrors the session transcript into the scrollable viewport.
// Blocks are cached by transcript entry ID so settled messages render once.
type ChatPanel struct {
	viewport OutputViewport
	spinner  *atoms.Spinner
	caret    *atoms.Caret
	blocks   map[int]ContentBlock
	theme    string
	width    int
	styles   ChatPanelStyles
}

// NewChatPanel creates a new chat panel.
func NewChatPanel(width, height int, theme string, styles ChatPanelStyles) ChatPanel {
	return ChatPanel{
		viewport: NewOutputViewport(width, height),
		spinner:  atoms.NewSpinner(styles.Spinner),
		caret:    atoms.NewCaret(styles.Spinner),
		blocks:   make(map[int]ContentBlock),
		theme:    theme,
		width:    width,
		styles:   styles,
	}
}

// Init starts the spinner ticks and caret blinking.
func (p ChatPanel) Init() tea.Cmd {
	return tea.Batch(p.spinner.Init(), atoms.BlinkCmd())
}

// Sync rebuilds the view from the transcript. liveID is the thinking region
// still receiving tokens, or 0.
func (p *ChatPanel) Sync(msgs []session.Message, liveID int) {
	next := make(map[int]ContentBlock, len(msgs))
	blocks := make([]ContentBlock, 0, len(msgs))

	for _, msg := range msgs {
		block := p.blocks[msg.ID]
		if msg.Kind == session.KindThinking {
			tb, ok := block.(*ThinkingBlock)
			if !ok {
				tb = NewThinkingBlock(p.spinner, p.caret, p.styles.ThinkingBorder)
			}
			tb.Set(msg.Content, msg.Collapsed, msg.ID == liveID)
			block = tb
		} else if block == nil {
			block = p.newTextBlock(msg)
		}
		next[msg.ID] = block
		blocks = append(blocks, block)
	}

	p.blocks = next
	p.viewport.SetBlocks(blocks)
}

func (p *ChatPanel) newTextBlock(msg session.Message) *TextBlock {
	switch {
	case msg.Kind == session.KindError:
		return NewTextBlock(LabelError, p.styles.Error, msg.Content, false, p.theme, p.width)
	case msg.Kind == session.KindQuestion:
		return NewTextBlock(LabelQuestion, p.styles.Assistant, msg.Content, false, p.theme, p.width)
	case msg.Role == protocol.RoleUser:
		return NewTextBlock(LabelUser, p.styles.User, msg.Content, false, p.theme, p.width)
	default:
		return NewTextBlock(LabelAssistant, p.styles.Assistant, msg.Content, true, p.theme, p.width)
	}
}

// SetTheme switches the markdown style. Rendered blocks are rebuilt on the next Sync.
func (p *ChatPanel) SetTheme(theme string) {
	p.theme = theme
	p.invalidate()
}

// Theme returns the markdown style in use.
func (p *ChatPanel) Theme() string { return p.theme }

// SetSize updates the viewport dimensions.
func (p *ChatPanel) SetSize(w, h int) {
	if w != p.width {
		p.invalidate()
	}
	p.width = w
	p.viewport.SetSize(w, h)
}

func (p *ChatPanel) invalidate() {
	p.blocks = make(map[int]ContentBlock)
}

// BlockCount returns the number of rendered blocks.
func (p *ChatPanel) BlockCount() int { return p.viewport.BlockCount() }

// Block returns the rendered block at position i.
func (p *ChatPanel) Block(i int) ContentBlock { return p.viewport.Block(i) }

// PageUp scrolls up by one page.
func (p *ChatPanel) PageUp() { p.viewport.PageUp() }

// PageDown scrolls down by one page.
func (p *ChatPanel) PageDown() { p.viewport.PageDown() }

// Update handles spinner ticks, caret blinks and viewport passthrough.
func (p ChatPanel) Update(msg tea.Msg) (ChatPanel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.(type) {
	case atoms.CaretBlinkMsg:
		cmds = append(cmds, p.caret.Update(msg))
		p.viewport.Refresh()
	default:
		if cmd := p.spinner.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
			p.viewport.Refresh()
		}
	}

	var vpCmd tea.Cmd
	p.viewport, vpCmd = p.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return p, tea.Batch(cmds...)
}

// View renders the chat viewport.
func (p ChatPanel) View() string {
	return p.viewport.View()
}
