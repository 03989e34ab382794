// Package repl provides the interactive mopctl shell.
package repl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/marketops/mopctl/internal/storage"
)

// CommandHandler handles one shell command.
type CommandHandler func(args []string) error

// CleanFunc runs a clean and returns a human-readable summary.
type CleanFunc func(ctx context.Context, dryRun bool) (string, error)

// Config holds REPL configuration.
type Config struct {
	Store *storage.Store
	Clean CleanFunc
}

// REPL is the interactive shell.
type REPL struct {
	store    *storage.Store
	clean    CleanFunc
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler
}

// New creates a REPL instance.
func New(cfg *Config) (*REPL, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("run-history storage is required")
	}

	r := &REPL{
		store:    cfg.Store,
		clean:    cfg.Clean,
		commands: make(map[string]CommandHandler),
	}
	r.registerCommands()
	return r, nil
}

// Run starts the shell loop.
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("mopctl> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	command := parts[0]
	args := parts[1:]

	if handler, ok := r.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s Unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), command)
	return nil
}

func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["runs"] = r.cmdRuns
	r.commands["clean"] = r.cmdClean
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
}

func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("mopctl interactive shell"))
	fmt.Println("Marketing data cleanup and reporting")
	fmt.Println()
	fmt.Println("Type 'help' for available commands, 'exit' to quit")
	fmt.Println()
}

func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan("Available Commands:"))
	fmt.Println("  help, ?            Show this help")
	fmt.Println("  runs [n]           Show the n most recent runs (default 10)")
	fmt.Println("  clean [--dry-run]  Merge and deduplicate the configured spreadsheet")
	fmt.Println("  exit, quit         Leave the shell")
	fmt.Println()
	return nil
}

func (r *REPL) cmdRuns(args []string) error {
	limit := 10
	if len(args) > 0 {
		if _, err := fmt.Sscanf(args[0], "%d", &limit); err != nil {
			return fmt.Errorf("invalid limit %q", args[0])
		}
	}

	runs, err := r.store.ListRuns(r.ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	PrintRuns(runs)
	return nil
}

func (r *REPL) cmdClean(args []string) error {
	if r.clean == nil {
		return fmt.Errorf("clean is not configured in this shell")
	}
	dryRun := len(args) > 0 && args[0] == "--dry-run"

	summary, err := r.clean(r.ctx, dryRun)
	if err != nil {
		return err
	}
	fmt.Println(summary)
	return nil
}

func (r *REPL) cmdExit(args []string) error {
	fmt.Println("Goodbye!")
	return io.EOF
}

// PrintRuns renders run history rows, shared with the `mopctl runs`
// command.
func PrintRuns(runs []*storage.Run) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, run := range runs {
		status := green(run.Status)
		if run.Status == storage.StatusFailed {
			status = red(run.Status)
		}
		fmt.Printf("%s  %-14s %s  read=%d written=%d dropped=%d\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Kind,
			status,
			run.RecordsRead,
			run.RecordsWritten,
			totalDropped(run))
		if run.Error != "" {
			fmt.Printf("    %s\n", run.Error)
		}
	}
}

func totalDropped(run *storage.Run) int {
	total := 0
	for _, n := range run.Dropped {
		total += n
	}
	return total
}
