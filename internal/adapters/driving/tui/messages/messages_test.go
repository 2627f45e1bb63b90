package messages

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewSources, "sources"},
		{ViewEditor, "editor"},
		{ViewViewer, "viewer"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.String())
		})
	}
}

func TestNotificationHelpers(t *testing.T) {
	tests := []struct {
		name  string
		cmd   func(string) tea.Cmd
		level Level
	}{
		{"info", Info, LevelInfo},
		{"success", Success, LevelSuccess},
		{"warn", Warn, LevelWarning},
		{"failure", Failure, LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.cmd("hello")()
			n, ok := msg.(Notify)
			require.True(t, ok)
			assert.Equal(t, "hello", n.Text)
			assert.Equal(t, tt.level, n.Level)
			assert.Zero(t, n.TTL)
		})
	}
}
