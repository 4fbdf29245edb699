package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/leadflow/leadctl/internal/core/domain"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// Toaster prints one transient notification line per event that carries a
// message. Stale list responses are never shown.
type Toaster struct {
	mu  sync.Mutex
	out io.Writer
}

func NewToaster(out io.Writer) *Toaster {
	return &Toaster{out: out}
}

func (t *Toaster) Notify(e domain.Event) {
	if e.Message == "" || e.Failure == domain.FailureStale {
		return
	}

	icon := successStyle.Render("✔")
	if e.Outcome == domain.OutcomeFailure {
		icon = failureStyle.Render("✖")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s %s\n", icon, messageStyle.Render(e.Message))
}
