package organisms

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/sirius/internal/protocol"
	"github.com/dohr-michael/sirius/internal/session"
)

func testStyles() ChatPanelStyles {
	return ChatPanelStyles{
		Assistant:      lipgloss.NewStyle(),
		User:           lipgloss.NewStyle(),
		Error:          lipgloss.NewStyle(),
		ThinkingBorder: lipgloss.NewStyle(),
		Spinner:        lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"},
	}
}

func TestChatPanelSync(t *testing.T) {
	p := NewChatPanel(80, 20, "dark", testStyles())

	msgs := []session.Message{
		{ID: 1, Role: protocol.RoleAssistant, Kind: session.KindText, Content: "Hi"},
		{ID: 2, Role: protocol.RoleUser, Kind: session.KindText, Content: "find a hotel"},
		{ID: 3, Role: protocol.RoleAssistant, Kind: session.KindThinking, Content: "looking"},
	}
	p.Sync(msgs, 3)

	if got := p.BlockCount(); got != 3 {
		t.Fatalf("expected 3 blocks, got %d", got)
	}
	user, ok := p.Block(1).(*TextBlock)
	if !ok || user.Role() != LabelUser {
		t.Fatalf("expected user text block, got %T", p.Block(1))
	}
	thinking, ok := p.Block(2).(*ThinkingBlock)
	if !ok {
		t.Fatalf("expected thinking block, got %T", p.Block(2))
	}

	msgs[2].Content = "looking harder"
	msgs[2].Collapsed = true
	msgs = append(msgs, session.Message{ID: 4, Role: protocol.RoleAssistant, Kind: session.KindError, Content: "failed"})
	p.Sync(msgs, 0)

	if p.Block(1) != user {
		t.Error("settled blocks should be reused across syncs")
	}
	if p.Block(2) != thinking || !thinking.Collapsed() {
		t.Error("thinking region should be updated in place")
	}
	if errBlock, ok := p.Block(3).(*TextBlock); !ok || errBlock.Role() != LabelError {
		t.Errorf("expected error block, got %T", p.Block(3))
	}

	p.Sync(msgs[:1], 0)
	if got := p.BlockCount(); got != 1 {
		t.Errorf("expected cleared transcript to leave 1 block, got %d", got)
	}
}

func TestChatPanelThemeInvalidates(t *testing.T) {
	p := NewChatPanel(80, 20, "dark", testStyles())
	msgs := []session.Message{{ID: 1, Role: protocol.RoleAssistant, Kind: session.KindText, Content: "**hi**"}}
	p.Sync(msgs, 0)
	before := p.Block(0)

	p.SetTheme("light")
	p.Sync(msgs, 0)
	if p.Block(0) == before {
		t.Error("theme change should rebuild rendered blocks")
	}
	if p.Theme() != "light" {
		t.Errorf("expected light theme, got %s", p.Theme())
	}
}
