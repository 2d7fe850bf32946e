package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tussienorway/tussievideo/internal/chain"
	"github.com/tussienorway/tussievideo/internal/display"
	"github.com/tussienorway/tussievideo/internal/export"
	"github.com/tussienorway/tussievideo/internal/logging"
	"github.com/tussienorway/tussievideo/internal/playback"
	"github.com/tussienorway/tussievideo/internal/provider"
	"github.com/tussienorway/tussievideo/internal/repl"
	"github.com/tussienorway/tussievideo/pkg/models"
)

func runStudio(cmd *cobra.Command, app *App) error {
	if err := validateModel(app, flagModel); err != nil {
		return err
	}

	s, err := app.buildStudio()
	if err != nil {
		return err
	}
	defer s.store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shell := repl.New(&repl.Config{
		In:         app.In,
		Out:        app.Out,
		Err:        app.Err,
		Controller: s.controller,
		Store:      s.store,
		Registry:   s.registry,
		Renderer:   s.renderer,
		Assembler:  s.assembler,
		Model:      flagModel,
	})
	return shell.Run(ctx)
}

func newGenerateCmd(app *App) *cobra.Command {
	var (
		flagProject  string
		flagContinue bool
		flagImage    string
		flagEnhance  bool
		flagOutput   string
	)

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a single clip without entering the studio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateModel(app, flagModel); err != nil {
				return err
			}

			s, err := app.buildStudio()
			if err != nil {
				return err
			}
			defer s.store.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			project, err := openOrCreateProject(ctx, s, flagProject, args[0])
			if err != nil {
				return err
			}
			s.controller.Open(project)

			var upload []byte
			var uploadMIME string
			if flagImage != "" {
				upload, err = os.ReadFile(flagImage)
				if err != nil {
					return fmt.Errorf("failed to read seed image: %w", err)
				}
				uploadMIME = http.DetectContentType(upload)
			}

			fmt.Fprintf(app.Out, "Generating with %s...\n", flagModel)
			clip, err := s.controller.Generate(ctx, chain.GenerateOptions{
				Prompt:     args[0],
				Model:      flagModel,
				Upload:     upload,
				UploadMIME: uploadMIME,
				Continue:   flagContinue,
				Enhance:    flagEnhance,
			})
			if err != nil {
				if hint := provider.Remediation(err); hint != "" {
					return fmt.Errorf("%w\n  hint: %s", err, hint)
				}
				return err
			}

			s.renderer.Clip(clip)

			if flagOutput != "" {
				if err := os.WriteFile(flagOutput, clip.Payload, 0644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				fmt.Fprintf(app.Out, "Saved: %s\n", flagOutput)
			}
			fmt.Fprintf(app.Out, "Project: %s\n", project.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagProject, "project", "p", "", "project ID to append to (default: a new project)")
	cmd.Flags().BoolVarP(&flagContinue, "continue", "c", false, "seed from the project's last clip")
	cmd.Flags().StringVarP(&flagImage, "image", "i", "", "seed image file")
	cmd.Flags().BoolVar(&flagEnhance, "enhance", false, "rewrite the prompt with a text model first")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "also write the clip's media to this file")

	return cmd
}

func openOrCreateProject(ctx context.Context, s *studio, projectID, prompt string) (*models.Project, error) {
	if projectID != "" {
		return s.store.Get(ctx, projectID)
	}

	name := prompt
	if len(name) > 40 {
		name = strings.TrimSpace(name[:40])
	}
	project := models.NewProject(name, uuid.NewString(), time.Now().UTC())
	if err := s.store.Save(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func newProjectsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.NewStore()
			if err != nil {
				return err
			}
			defer st.Close()

			projects, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			display.New(app.Out).Projects(projects)
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	var flagOut string

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export a project's image clips as a movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.NewStore()
			if err != nil {
				return err
			}
			defer st.Close()

			project, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			logger := logging.NewLogger(app.Err, flagLogLevel)
			assembler := export.NewAssembler(app.Encoder, logging.WithComponent(logger, "export"))

			outPath, err := assembler.ExportMovie(cmd.Context(), project, export.Options{OutputDir: flagOut})
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Exported: %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagOut, "out", "o", ".", "output directory")
	return cmd
}

func newServeCmd(app *App) *cobra.Command {
	var flagAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored projects over HTTP for browser playback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.NewStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger := logging.NewLogger(app.Err, flagLogLevel)
			server := &http.Server{
				Addr:    flagAddr,
				Handler: playback.NewServer(st, logging.WithComponent(logger, "playback")),
			}

			errCh := make(chan error, 1)
			go func() {
				fmt.Fprintf(app.Out, "Serving on http://%s\n", flagAddr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}
