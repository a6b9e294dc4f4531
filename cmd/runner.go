package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/resolver"
	"github.com/desertthunder/vibes/internal/services"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/desertthunder/vibes/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built from the loaded configuration when a command first needs them.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	parser  services.PromptParser
	catalog services.Catalog
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Parser and Catalog replace the configured generator and Spotify catalog when set.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Parser     services.PromptParser
	Catalog    services.Catalog
}

// NewRunner creates a new Runner with the provided configuration.
//
// A nil Config is loaded from the config file, dotenv files and environment in [Runner.Before].
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		parser:     opts.Parser,
		catalog:    opts.Catalog,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, loginCommand, refreshCommand, parseCommand, tracksCommand, buildCommand, exportCommand, tuiCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration and applies global flags ahead of every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.config != nil {
		return ctx, nil
	}

	config, err := shared.Load(r.configPath, cmd.StringSlice("env")...)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.logger.Debug("configuration loaded", "path", r.configPath)
	return ctx, nil
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// newCatalog returns the Spotify catalog built from configuration.
func (r *Runner) newCatalog() services.Catalog {
	if r.catalog != nil {
		return r.catalog
	}
	c := r.cfg()
	r.catalog = services.NewSpotifyCatalog(services.CatalogOptions{
		BaseURL:     c.Catalog.BaseURL,
		HTTPClient:  r.httpClient,
		Description: c.Playlist.Description,
		Public:      c.Playlist.Public,
		Logger:      r.logger,
	})
	return r.catalog
}

// newParser returns the chat-completion prompt parser built from configuration.
func (r *Runner) newParser() (services.PromptParser, error) {
	if r.parser != nil {
		return r.parser, nil
	}
	c := r.cfg()
	if err := c.RequireGenerator(); err != nil {
		return nil, err
	}
	gen, err := services.NewGenerator(services.GeneratorOptions{
		APIKey:       c.Credentials.OpenAI.APIKey,
		BaseURL:      c.Generator.BaseURL,
		Model:        c.Generator.Model,
		MaxTokens:    c.Generator.MaxTokens,
		Temperature:  c.Generator.Temperature,
		PlaylistSize: c.Generator.PlaylistSize,
		HTTPClient:   r.httpClient,
		Logger:       r.logger,
	})
	if err != nil {
		return nil, err
	}
	r.parser = gen
	return gen, nil
}

// newAuthenticator returns the OAuth2 authenticator built from configuration.
func (r *Runner) newAuthenticator() (*services.Authenticator, error) {
	c := r.cfg()
	if err := c.RequireSpotify(); err != nil {
		return nil, err
	}
	return services.NewAuthenticator(services.AuthOptions{
		ClientID:     c.Credentials.Spotify.ClientID,
		ClientSecret: c.Credentials.Spotify.ClientSecret,
		RedirectURL:  c.Credentials.Spotify.RedirectURI,
		AuthURL:      c.Identity.AuthURL,
		TokenURL:     c.Identity.TokenURL,
		Scopes:       c.Identity.Scopes,
		HTTPClient:   r.httpClient,
	})
}

// newEngine wires the parser, resolver and catalog into a [tasks.PlaylistEngine].
//
// The parser is optional so that commands which never generate still work without an API key.
func (r *Runner) newEngine(needParser bool) (*tasks.PlaylistEngine, error) {
	var parser services.PromptParser
	if needParser {
		p, err := r.newParser()
		if err != nil {
			return nil, err
		}
		parser = p
	}

	catalog := r.newCatalog()
	res := resolver.New(resolver.Options{
		Catalog: catalog,
		Logger:  r.logger,
		Timeout: r.cfg().Catalog.RequestTimeout,
	})
	return tasks.NewPlaylistEngine(parser, res, catalog, r.logger), nil
}

// watchProgress prints progress updates until the returned stop function is called.
func (r *Runner) watchProgress() (chan tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			switch update.Phase {
			case tasks.ParsePrompt:
				r.writePlain("✨ %s\n", update.Message)
			case tasks.SearchTracks:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.LookupUser, tasks.CreatePlaylist, tasks.AddTracks:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.ExportReport:
				r.writePlain("📦 %s\n", update.Message)
			}
		}
	}()

	return progressCh, func() {
		close(progressCh)
		wg.Wait()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// promptArg joins the positional arguments into a single vibe.
func promptArg(cmd *cli.Command) (string, error) {
	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}
	return prompt, nil
}

// tokenFlag returns the --token value or an error when it is unset.
func tokenFlag(cmd *cli.Command) (string, error) {
	token := strings.TrimSpace(cmd.String("token"))
	if token == "" {
		return "", fmt.Errorf("%w: pass --token or set SPOTIFY_ACCESS_TOKEN (see `vibes login`)", shared.ErrNotAuthenticated)
	}
	return token, nil
}
