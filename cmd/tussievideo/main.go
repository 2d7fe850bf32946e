package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tussienorway/tussievideo/internal/chain"
	"github.com/tussienorway/tussievideo/internal/display"
	"github.com/tussienorway/tussievideo/internal/export"
	"github.com/tussienorway/tussievideo/internal/frame"
	"github.com/tussienorway/tussievideo/internal/keys"
	"github.com/tussienorway/tussievideo/internal/logging"
	"github.com/tussienorway/tussievideo/internal/provider"
	"github.com/tussienorway/tussievideo/internal/provider/gemini"
	"github.com/tussienorway/tussievideo/internal/store"
	"github.com/tussienorway/tussievideo/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

const (
	providerName = "gemini"
	apiKeyEnvVar = "GEMINI_API_KEY"
	defaultModel = "veo-3.1"
)

var (
	flagModel    string
	flagAPIKey   string
	flagLogLevel string
)

// App carries the injectable seams so commands can be exercised in tests
// without touching the network or the user's home directory.
type App struct {
	In       io.Reader
	Out      io.Writer
	Err      io.Writer
	Registry *models.ModelRegistry

	NewClient func(cfg *provider.Config, registry *models.ModelRegistry, logger *slog.Logger) (provider.Client, error)
	NewStore  func() (*store.Store, error)
	FFmpeg    frame.FFmpeg
	Encoder   export.Encoder
}

func DefaultApp() *App {
	return &App{
		In:       os.Stdin,
		Out:      os.Stdout,
		Err:      os.Stderr,
		Registry: models.DefaultRegistry(),
		NewClient: func(cfg *provider.Config, registry *models.ModelRegistry, logger *slog.Logger) (provider.Client, error) {
			return gemini.New(cfg, registry, logger)
		},
		NewStore: store.NewStore,
		FFmpeg:   frame.NewExecFFmpeg(),
		Encoder:  export.NewFFmpegEncoder(),
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	return newRootCmd(app).Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tussievideo",
		Short: "Storyboard studio for generative video",
		Long: `tussievideo builds storyboards out of AI-generated clips. Each clip
can be chained off the previous one, seeded from its last frame or a
server-side handle, so a sequence of prompts becomes one continuous
scene. Projects live in a local database; image clips can be exported
as a movie.

Run without arguments to enter the interactive studio.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudio(cmd, app)
		},
	}

	cmd.PersistentFlags().StringVarP(&flagModel, "model", "m", defaultModel, "model to use")
	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to stored key or "+apiKeyEnvVar+")")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newGenerateCmd(app),
		newProjectsCmd(app),
		newExportCmd(app),
		newServeCmd(app),
		newKeysCmd(app),
	)

	return cmd
}

// studio wires every component behind the interactive shell. Logs go to
// stderr so they never interleave with the prompt.
type studio struct {
	store      *store.Store
	controller *chain.Controller
	registry   *models.ModelRegistry
	renderer   *display.Renderer
	assembler  *export.Assembler
	logger     *slog.Logger
}

func (app *App) buildStudio() (*studio, error) {
	logger := logging.NewLogger(app.Err, flagLogLevel)

	apiKey, source, err := keys.GetAPIKey(flagAPIKey, providerName, apiKeyEnvVar)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved api key", "source", source)

	factory := provider.NewFactory(app.Registry)
	factory.Configure(models.ProviderGemini, &provider.Config{APIKey: apiKey})

	cfg, _ := factory.GetConfig(models.ProviderGemini)
	gem, err := app.NewClient(cfg, app.Registry, logging.WithComponent(logger, "gemini"))
	if err != nil {
		return nil, err
	}
	factory.Register(gem)

	client, err := factory.GetForModel(flagModel)
	if err != nil {
		return nil, err
	}

	st, err := app.NewStore()
	if err != nil {
		return nil, err
	}

	extractor := frame.NewExtractor(app.FFmpeg)

	var opts []chain.Option
	if enhancer, ok := client.(provider.Enhancer); ok {
		opts = append(opts, chain.WithEnhancer(enhancer))
	}
	controller := chain.NewController(client, extractor, st, app.Registry,
		logging.WithComponent(logger, "chain"), opts...)

	return &studio{
		store:      st,
		controller: controller,
		registry:   app.Registry,
		renderer:   display.New(app.Out),
		assembler:  export.NewAssembler(app.Encoder, logging.WithComponent(logger, "export")),
		logger:     logger,
	}, nil
}

func validateModel(app *App, name string) error {
	if _, ok := app.Registry.Get(name); !ok {
		return fmt.Errorf("unknown model %q: available models: %v", name, app.Registry.List())
	}
	return nil
}
