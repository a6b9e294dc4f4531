package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Identity    IdentityConfig    `toml:"identity"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Generator   GeneratorConfig   `toml:"generator"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	OpenAI  OpenAIConfig  `toml:"openai"`
}

// SpotifyConfig contains Spotify application credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"SPOTIFY_REDIRECT_URI"`
}

// OpenAIConfig contains the generative text API key.
type OpenAIConfig struct {
	APIKey string `toml:"api_key" env:"OPENAI_API_KEY"`
}

// IdentityConfig points at the OAuth identity provider.
type IdentityConfig struct {
	AuthURL  string   `toml:"auth_url" env:"VIBES_AUTH_URL"`
	TokenURL string   `toml:"token_url" env:"VIBES_TOKEN_URL"`
	Scopes   []string `toml:"scopes" env:"VIBES_SCOPES" envSeparator:","`
}

// CatalogConfig contains music catalog API settings.
type CatalogConfig struct {
	BaseURL        string        `toml:"base_url" env:"VIBES_CATALOG_URL"`
	RequestTimeout time.Duration `toml:"request_timeout" env:"VIBES_CATALOG_TIMEOUT"`
}

// GeneratorConfig contains chat completion settings.
type GeneratorConfig struct {
	BaseURL      string   `toml:"base_url" env:"OPENAI_BASE_URL"`
	Model        string   `toml:"model" env:"OPENAI_MODEL"`
	MaxTokens    int      `toml:"max_tokens" env:"OPENAI_MAX_TOKENS"`
	Temperature  *float32 `toml:"temperature" env:"OPENAI_TEMPERATURE"` // nil uses the generator default
	PlaylistSize int      `toml:"playlist_size" env:"VIBES_PLAYLIST_SIZE"`
}

// PlaylistConfig contains settings for playlists created in the user's account.
type PlaylistConfig struct {
	Public      bool   `toml:"public" env:"VIBES_PLAYLIST_PUBLIC"`
	Description string `toml:"description" env:"VIBES_PLAYLIST_DESCRIPTION"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host" env:"VIBES_HOST"`
	Port           int      `toml:"port" env:"PORT"`
	FrontendURL    string   `toml:"frontend_url" env:"VIBES_FRONTEND_URL"`
	AllowedOrigins []string `toml:"allowed_origins" env:"VIBES_ALLOWED_ORIGINS" envSeparator:","`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads a TOML configuration file from the specified path on top of [DefaultConfig].
//
// Keys absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load builds the runtime configuration.
//
// Defaults come from the embedded example, then the TOML file at configPath (if it exists),
// then dotenv files (missing files are ignored), then the process environment.
func Load(configPath string, dotenvFiles ...string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			loaded, err := LoadConfig(configPath)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := LoadDotenv(dotenvFiles...); err != nil {
		return nil, err
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadDotenv loads the given dotenv files (".env" when none are given) into the process environment.
//
// Variables already present in the environment are not overwritten.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, f, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with any matching environment variables.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// RequireSpotify reports whether Spotify application credentials are present.
func (c *Config) RequireSpotify() error {
	var missing []string
	if c.Credentials.Spotify.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.Credentials.Spotify.RedirectURI == "" {
		missing = append(missing, "redirect_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: spotify %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// RequireGenerator reports whether the generative text API key is present.
func (c *Config) RequireGenerator() error {
	if c.Credentials.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: openai api_key", ErrMissingCredentials)
	}
	return nil
}

// Validate checks all credentials needed to run the HTTP server.
func (c *Config) Validate() error {
	return errors.Join(c.RequireSpotify(), c.RequireGenerator())
}
