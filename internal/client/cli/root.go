package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/mousetrap/internal/client/guard"
)

func (a *App) getStatus() string {
	parts := make([]string, 0, 3)
	if a.userName != "" {
		parts = append(parts, a.userName)
	}
	if st := a.guard.State(); st != guard.StateIdle {
		parts = append(parts, st.String())
	}
	if a.learner.Running() {
		parts = append(parts, "learning")
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

// Root runs the REPL on stdin and tears everything down when it ends.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to MouseTrap (type 'help' for commands)")
	defer a.shutdown(ctx)

	if err := a.ensureConnected(ctx); err != nil {
		printlnFn("Server unavailable, commands will retry:", err)
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
