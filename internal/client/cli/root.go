package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

func (a *App) getStatus() string {
	if !a.opened {
		return ""
	}
	id := a.key.UserID().String()
	return fmt.Sprintf("(%s...) ", id[:8])
}

// Run starts the interactive loop.
func (a *App) Run(ctx context.Context) {
	fmt.Println("Welcome to sigfeed CLI (type 'help' for commands)")
	fmt.Println("Server:", a.config.ServerURL)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
