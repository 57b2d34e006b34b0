package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/edetail/internal/clock"
)

// loopTaskMsg carries one engine task onto the Bubble Tea update loop.
type loopTaskMsg struct{ fn func() }

// loopClosedMsg is sent once the engine loop's context is done.
type loopClosedMsg struct{}

// waitForTask blocks off the update loop until the engine has work, so
// every engine task runs inside Update. Only one wait is outstanding at a
// time.
func waitForTask(ctx context.Context, loop *clock.Loop) tea.Cmd {
	return func() tea.Msg {
		fn, ok := loop.Next(ctx)
		if !ok {
			return loopClosedMsg{}
		}
		return loopTaskMsg{fn: fn}
	}
}
