// Package repl implements the interactive studio shell. All storyboard
// work happens here: creating projects, generating clips, chaining, and
// exporting.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tussienorway/tussievideo/internal/chain"
	"github.com/tussienorway/tussievideo/internal/display"
	"github.com/tussienorway/tussievideo/internal/export"
	"github.com/tussienorway/tussievideo/internal/store"
	"github.com/tussienorway/tussievideo/pkg/models"
)

type REPL struct {
	in  io.Reader
	out io.Writer
	err io.Writer

	controller *chain.Controller
	store      *store.Store
	registry   *models.ModelRegistry
	renderer   *display.Renderer
	assembler  *export.Assembler

	model    string
	enhance  bool
	commands map[string]Command
	running  bool
}

type Config struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Controller *chain.Controller
	Store      *store.Store
	Registry   *models.ModelRegistry
	Renderer   *display.Renderer
	Assembler  *export.Assembler
	Model      string
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:         cfg.In,
		out:        cfg.Out,
		err:        cfg.Err,
		controller: cfg.Controller,
		store:      cfg.Store,
		registry:   cfg.Registry,
		renderer:   cfg.Renderer,
		assembler:  cfg.Assembler,
		model:      cfg.Model,
		commands:   make(map[string]Command),
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "tussievideo studio")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	status := r.controller.Status()
	name := status.ProjectName
	if name == "" {
		name = "no project"
	}
	if status.Chaining {
		fmt.Fprintf(r.out, "tussie [%s] (%s) chaining> ", r.model, name)
	} else {
		fmt.Fprintf(r.out, "tussie [%s] (%s)> ", r.model, name)
	}
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
