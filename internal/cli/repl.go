package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"

	"github.com/marcelocantos/swish/internal/shell"
)

// RunInteractive reads lines from the terminal until exit, quit or EOF and
// returns the status of the last line run.
func (a *App) RunInteractive(ctx context.Context, prompt, historyFile string) int {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(a.Stderr, "swish: readline: %v\n", err)
		return shell.StatusSetup
	}
	defer rl.Close()

	// ^C while a pipeline runs belongs to the pipeline, not the prompt.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	status := 0
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return status
		case err != nil:
			fmt.Fprintf(a.Stderr, "swish: readline: %v\n", err)
			return shell.StatusSetup
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case "exit", "quit":
			return status
		}
		status = a.RunLine(ctx, line)
	}
}

// RunScript runs each line of r in turn and returns the status of the last
// one. Commands do not read from r.
func (a *App) RunScript(ctx context.Context, r io.Reader) int {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	status := 0
	for sc.Scan() {
		if ctx.Err() != nil {
			return status
		}
		status = a.RunLine(ctx, sc.Text())
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(a.Stderr, "swish: reading script: %v\n", err)
		return shell.StatusSetup
	}
	return status
}
