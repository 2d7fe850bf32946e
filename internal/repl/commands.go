package repl

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tussienorway/tussievideo/internal/chain"
	"github.com/tussienorway/tussievideo/internal/export"
	"github.com/tussienorway/tussievideo/internal/provider"
	"github.com/tussienorway/tussievideo/internal/security"
	"github.com/tussienorway/tussievideo/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func (r *REPL) registerCommands() {
	commands := []Command{
		&NewCommand{},
		&OpenCommand{},
		&ProjectsCommand{},
		&ClipsCommand{},
		&DeleteCommand{},
		&GenerateCommand{},
		&ContinueCommand{},
		&ChainCommand{},
		&StopCommand{},
		&ExportCommand{},
		&SaveCommand{},
		&ModelCommand{},
		&EnhanceCommand{},
		&StatusCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	for _, cmd := range commands {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// reportGenerationError prints the failure plus a remediation hint when
// one is known for the error kind.
func (r *REPL) reportGenerationError(err error) error {
	if hint := provider.Remediation(err); hint != "" {
		return fmt.Errorf("%w\n  hint: %s", err, hint)
	}
	return err
}

func (r *REPL) currentProject() (*models.Project, error) {
	project := r.controller.Project()
	if project == nil {
		return nil, fmt.Errorf("no project is open (use 'new' or 'open')")
	}
	return project, nil
}

// NewCommand creates and opens a project.
type NewCommand struct{}

func (c *NewCommand) Name() string        { return "new" }
func (c *NewCommand) Aliases() []string   { return []string{"n"} }
func (c *NewCommand) Description() string { return "Create and open a new project" }
func (c *NewCommand) Usage() string       { return "new [name]" }

func (c *NewCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	now := time.Now().UTC()
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		name = "Project " + now.Local().Format("2006-01-02 15:04")
	}

	project := models.NewProject(name, uuid.NewString(), now)
	if err := r.store.Save(ctx, project); err != nil {
		return err
	}
	r.controller.Open(project)

	fmt.Fprintf(r.out, "Created project %q (%s)\n", project.Name, project.ID)
	return nil
}

// OpenCommand opens an existing project by ID or unique ID prefix.
type OpenCommand struct{}

func (c *OpenCommand) Name() string        { return "open" }
func (c *OpenCommand) Aliases() []string   { return []string{"o"} }
func (c *OpenCommand) Description() string { return "Open an existing project" }
func (c *OpenCommand) Usage() string       { return "open <project-id>" }

func (c *OpenCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	project, err := r.resolveProject(ctx, args[0])
	if err != nil {
		return err
	}
	r.controller.Open(project)

	fmt.Fprintf(r.out, "Opened %q (%d clips)\n", project.Name, len(project.Clips))
	return nil
}

func (r *REPL) resolveProject(ctx context.Context, idOrPrefix string) (*models.Project, error) {
	if project, err := r.store.Get(ctx, idOrPrefix); err == nil {
		return project, nil
	}

	projects, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*models.Project
	for _, p := range projects {
		if strings.HasPrefix(p.ID, idOrPrefix) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("no project matches %q", idOrPrefix)
	default:
		return nil, fmt.Errorf("%q is ambiguous (%d matches)", idOrPrefix, len(matches))
	}
}

// ProjectsCommand lists stored projects.
type ProjectsCommand struct{}

func (c *ProjectsCommand) Name() string        { return "projects" }
func (c *ProjectsCommand) Aliases() []string   { return []string{"ls"} }
func (c *ProjectsCommand) Description() string { return "List all projects, newest first" }
func (c *ProjectsCommand) Usage() string       { return "projects" }

func (c *ProjectsCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	projects, err := r.store.List(ctx)
	if err != nil {
		return err
	}
	r.renderer.Projects(projects)
	return nil
}

// ClipsCommand shows the open project's storyboard.
type ClipsCommand struct{}

func (c *ClipsCommand) Name() string        { return "clips" }
func (c *ClipsCommand) Aliases() []string   { return []string{"board"} }
func (c *ClipsCommand) Description() string { return "Show the open project's clips in order" }
func (c *ClipsCommand) Usage() string       { return "clips" }

func (c *ClipsCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	project, err := r.currentProject()
	if err != nil {
		return err
	}
	r.renderer.Clips(project)
	return nil
}

// DeleteCommand removes a project.
type DeleteCommand struct{}

func (c *DeleteCommand) Name() string        { return "delete" }
func (c *DeleteCommand) Aliases() []string   { return []string{"rm"} }
func (c *DeleteCommand) Description() string { return "Delete a project and its clips" }
func (c *DeleteCommand) Usage() string       { return "delete <project-id>" }

func (c *DeleteCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	if err := r.store.Delete(ctx, args[0]); err != nil {
		return err
	}
	if current := r.controller.Project(); current != nil && current.ID == args[0] {
		r.controller.Open(nil)
	}

	fmt.Fprintf(r.out, "Deleted %s\n", args[0])
	return nil
}

// GenerateCommand generates one clip from a prompt.
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate a clip from a prompt" }
func (c *GenerateCommand) Usage() string       { return "generate [-i seed.png] <prompt>" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	var upload []byte
	var uploadMIME string

	if len(args) >= 2 && args[0] == "-i" {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read seed image: %w", err)
		}
		upload = data
		uploadMIME = http.DetectContentType(data)
		args = args[2:]
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	fmt.Fprintf(r.out, "Generating with %s...\n", r.model)

	clip, err := r.controller.Generate(ctx, chain.GenerateOptions{
		Prompt:     strings.Join(args, " "),
		Model:      r.model,
		Upload:     upload,
		UploadMIME: uploadMIME,
		Enhance:    r.enhance,
	})
	if err != nil {
		return r.reportGenerationError(err)
	}

	r.renderer.Clip(clip)
	return nil
}

// ContinueCommand extends the storyboard by one clip.
type ContinueCommand struct{}

func (c *ContinueCommand) Name() string        { return "continue" }
func (c *ContinueCommand) Aliases() []string   { return []string{"cont", "c"} }
func (c *ContinueCommand) Description() string { return "Continue the scene by one clip" }
func (c *ContinueCommand) Usage() string       { return "continue [prompt]" }

func (c *ContinueCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	fmt.Fprintf(r.out, "Continuing with %s...\n", r.model)

	clip, err := r.controller.Generate(ctx, chain.GenerateOptions{
		Prompt:   strings.Join(args, " "),
		Model:    r.model,
		Continue: true,
		Enhance:  r.enhance,
	})
	if err != nil {
		return r.reportGenerationError(err)
	}

	r.renderer.Clip(clip)
	return nil
}

// ChainCommand keeps generating continuations until stopped.
type ChainCommand struct{}

func (c *ChainCommand) Name() string        { return "chain" }
func (c *ChainCommand) Aliases() []string   { return nil }
func (c *ChainCommand) Description() string { return "Keep generating clips until stopped" }
func (c *ChainCommand) Usage() string       { return "chain [prompt]" }

func (c *ChainCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.controller.Chaining() {
		return chain.ErrBusy
	}
	if _, err := r.currentProject(); err != nil {
		return err
	}

	prompt := strings.Join(args, " ")
	fmt.Fprintln(r.out, "Chain started. Type 'stop' to end it after the current clip.")

	go func() {
		produced, err := r.controller.RunChain(ctx, chain.ChainOptions{
			Prompt: prompt,
			Model:  r.model,
			OnClip: func(clip *models.Clip) {
				fmt.Fprintf(r.out, "\n[chain] clip %s added\n", clip.ID)
			},
		})
		if err != nil {
			fmt.Fprintf(r.err, "\n[chain] stopped after %d clip(s): %v\n", produced, r.reportGenerationError(err))
			return
		}
		fmt.Fprintf(r.out, "\n[chain] finished with %d clip(s)\n", produced)
	}()

	return nil
}

// StopCommand cancels a running chain.
type StopCommand struct{}

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Aliases() []string   { return nil }
func (c *StopCommand) Description() string { return "Stop the chain before its next clip" }
func (c *StopCommand) Usage() string       { return "stop" }

func (c *StopCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if !r.controller.Chaining() {
		return fmt.Errorf("no chain is running")
	}
	r.controller.Cancel()
	fmt.Fprintln(r.out, "Chain will stop after the clip currently in flight.")
	return nil
}

// ExportCommand assembles the project's stills into a movie.
type ExportCommand struct{}

func (c *ExportCommand) Name() string        { return "export" }
func (c *ExportCommand) Aliases() []string   { return nil }
func (c *ExportCommand) Description() string { return "Export image clips as a movie" }
func (c *ExportCommand) Usage() string       { return "export [output-dir]" }

func (c *ExportCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	project, err := r.currentProject()
	if err != nil {
		return err
	}

	outDir := "."
	if len(args) > 0 {
		outDir = args[0]
	}

	fmt.Fprintln(r.out, "Exporting...")
	outPath, err := r.assembler.ExportMovie(ctx, project, export.Options{OutputDir: outDir})
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Exported: %s\n", outPath)
	return nil
}

// SaveCommand writes a clip's payload to a file.
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return nil }
func (c *SaveCommand) Description() string { return "Save a clip's media to a file" }
func (c *SaveCommand) Usage() string       { return "save <clip-number> [path]" }

func (c *SaveCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	project, err := r.currentProject()
	if err != nil {
		return err
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(project.Clips) {
		return fmt.Errorf("clip number must be 1-%d", len(project.Clips))
	}
	clip := project.Clips[n-1]

	path := clip.ID + clip.MediaType.Ext()
	if len(args) > 1 {
		path = args[1]
	}
	if err := security.ValidateSavePath(path); err != nil {
		return err
	}

	if err := os.WriteFile(path, clip.Payload, 0644); err != nil {
		return fmt.Errorf("failed to save clip: %w", err)
	}

	fmt.Fprintf(r.out, "Saved: %s\n", path)
	return nil
}

// ModelCommand shows or switches the active model.
type ModelCommand struct{}

func (c *ModelCommand) Name() string        { return "model" }
func (c *ModelCommand) Aliases() []string   { return []string{"m"} }
func (c *ModelCommand) Description() string { return "Show or switch the active model" }
func (c *ModelCommand) Usage() string       { return "model [name]" }

func (c *ModelCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Current model: %s\n\nAvailable:\n", r.model)
		for _, name := range r.registry.List() {
			cap, _ := r.registry.Get(name)
			extend := ""
			if cap.SupportsContinuation {
				extend = ", extendable"
			}
			fmt.Fprintf(r.out, "  %-24s %s%s\n", name, cap.Media, extend)
		}
		return nil
	}

	name := args[0]
	if _, ok := r.registry.Get(name); !ok {
		return fmt.Errorf("unknown model: %s", name)
	}
	r.model = name
	fmt.Fprintf(r.out, "Model set to %s\n", name)
	return nil
}

// EnhanceCommand toggles prompt enhancement.
type EnhanceCommand struct{}

func (c *EnhanceCommand) Name() string        { return "enhance" }
func (c *EnhanceCommand) Aliases() []string   { return nil }
func (c *EnhanceCommand) Description() string { return "Toggle prompt enhancement" }
func (c *EnhanceCommand) Usage() string       { return "enhance [on|off]" }

func (c *EnhanceCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on":
			r.enhance = true
		case "off":
			r.enhance = false
		default:
			return fmt.Errorf("usage: %s", c.Usage())
		}
	} else {
		r.enhance = !r.enhance
	}

	state := "off"
	if r.enhance {
		state = "on"
	}
	fmt.Fprintf(r.out, "Prompt enhancement %s\n", state)
	return nil
}

// StatusCommand shows the controller state.
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return nil }
func (c *StatusCommand) Description() string { return "Show project and generation status" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	status := r.controller.Status()
	if status.ProjectID == "" {
		fmt.Fprintln(r.out, "No project open")
	} else {
		fmt.Fprintf(r.out, "Project:  %s (%s)\n", status.ProjectName, status.ProjectID)
		fmt.Fprintf(r.out, "Clips:    %d\n", status.ClipCount)
	}
	fmt.Fprintf(r.out, "Model:    %s\n", r.model)
	fmt.Fprintf(r.out, "State:    %s\n", status.State)
	if status.Chaining {
		fmt.Fprintln(r.out, "Chain:    running")
	}
	return nil
}

// HelpCommand lists commands.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"h", "?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range r.commands {
		if !seen[cmd.Name()] {
			seen[cmd.Name()] = true
			names = append(names, cmd.Name())
		}
	}
	sort.Strings(names)

	fmt.Fprintln(r.out, "Commands:")
	for _, name := range names {
		cmd := r.commands[name]
		fmt.Fprintf(r.out, "  %-28s %s\n", cmd.Usage(), cmd.Description())
	}
	return nil
}

// QuitCommand exits the shell.
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit the studio" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.controller.Chaining() {
		r.controller.Cancel()
		fmt.Fprintln(r.out, "Stopping chain...")
	}
	r.Stop()
	fmt.Fprintln(r.out, "Goodbye!")
	return nil
}
