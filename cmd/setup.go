package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/vibes/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the example configuration to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if cmd.Bool("force") {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing config: %w", err)
		}
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)\n")
	r.writePlain("2. Set credentials.openai.api_key (or OPENAI_API_KEY)\n")
	r.writePlain("3. Run 'vibes login' to get an access token\n")
	return nil
}

// ConfigShow prints the effective configuration as JSON with secrets masked.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config := *r.cfg()
	config.Credentials.Spotify.ClientSecret = mask(config.Credentials.Spotify.ClientSecret)
	config.Credentials.OpenAI.APIKey = mask(config.Credentials.OpenAI.APIKey)
	return r.writeJSON(config, true)
}

// mask hides all but the last four characters of a secret.
func mask(secret string) string {
	if len(secret) <= 4 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
