package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel        = openai.GPT4oMini
	DefaultMaxTokens    = 250
	DefaultTemperature  = 0.2
	DefaultPlaylistSize = 10

	SystemPrompt = "You extract music details from user prompts for playlist creation."

	// ParseWarning accompanies raw model output that could not be decoded.
	ParseWarning = "Could not parse the model output as JSON; returning raw text"
)

const userPromptTemplate = `Extract the following details from the text:
- Mood: overall vibe
- Genre: always determine the music style based on the artist or explicit details
- Artists: any explicitly mentioned artist names (array)
- Recommendations: if the text mentions "similar artists" or "like", suggest at least three similar artists (array); otherwise, return []
- Playlist: generate exactly %d song entries, each an object with "song" and "artist"

Text: "%s"

Return only complete, valid JSON with keys "mood", "genre", "artists", "recommendations", and "playlist".`

var (
	codeFence     = regexp.MustCompile("```(json)?")
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// GeneratorOptions configures a [Generator].
type GeneratorOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Temperature  *float32 // nil uses DefaultTemperature; zero is kept
	PlaylistSize int
	HTTPClient   *http.Client
	Logger       *log.Logger
}

// ParseOutcome is the result of parsing a prompt.
//
// Exactly one of Parsed or Raw is set. Warning is non-empty when Raw is set.
type ParseOutcome struct {
	Parsed  *models.ParsedPrompt `json:"parsedData,omitempty"`
	Raw     string               `json:"raw,omitempty"`
	Warning string               `json:"warning,omitempty"`
}

// OK reports whether the model output decoded into a [models.ParsedPrompt].
func (o *ParseOutcome) OK() bool {
	return o != nil && o.Parsed != nil
}

// Generator extracts structured playlist data from a vibe using a chat completion model.
type Generator struct {
	client       *openai.Client
	model        string
	maxTokens    int
	temperature  float32
	playlistSize int
	logger       *log.Logger
}

// NewGenerator creates a Generator. Zero-valued options other than Temperature fall back to the
// package defaults.
func NewGenerator(opts GeneratorOptions) (*Generator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: generator api key", shared.ErrMissingCredentials)
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	g := &Generator{
		client:       openai.NewClientWithConfig(cfg),
		model:        opts.Model,
		maxTokens:    opts.MaxTokens,
		temperature:  DefaultTemperature,
		playlistSize: opts.PlaylistSize,
		logger:       opts.Logger,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxTokens
	}
	if opts.Temperature != nil {
		g.temperature = *opts.Temperature
	}
	if g.playlistSize <= 0 {
		g.playlistSize = DefaultPlaylistSize
	}
	if g.logger == nil {
		g.logger = shared.NewLogger(nil)
	}
	g.logger = shared.WithLogger(g.logger, "service", "generator")
	return g, nil
}

// UserPrompt renders the extraction instructions for a vibe.
func (g *Generator) UserPrompt(prompt string) string {
	return fmt.Sprintf(userPromptTemplate, g.playlistSize, prompt)
}

// requestTemperature maps zero to the smallest positive float32 so the omitempty request field
// still carries it.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// Parse sends the prompt to the model and decodes its answer.
//
// An empty prompt is rejected before any request is made. Output that cannot be decoded after
// [CleanCompletion] yields a warning outcome rather than an error.
func (g *Generator) Parse(ctx context.Context, prompt string) (*ParseOutcome, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: g.UserPrompt(prompt)},
		},
		MaxTokens:   g.maxTokens,
		Temperature: requestTemperature(g.temperature),
	})
	if err != nil {
		ue := generatorError(err)
		g.logger.Error("chat completion failed", "status", ue.Status, "body", ue.Body)
		return nil, ue
	}
	if len(resp.Choices) == 0 {
		return nil, &UpstreamError{Service: "generator", Op: "chat completion", Err: fmt.Errorf("%w: no choices returned", shared.ErrMalformedOutput)}
	}

	raw := resp.Choices[0].Message.Content
	parsed, err := DecodeCompletion(raw)
	if err != nil {
		g.logger.Warn("model output is not valid JSON", "err", err)
		return &ParseOutcome{Raw: raw, Warning: ParseWarning}, nil
	}

	g.logger.Debug("parsed prompt", "mood", parsed.Mood, "genre", parsed.Genre, "songs", len(parsed.Playlist))
	return &ParseOutcome{Parsed: parsed}, nil
}

// CleanCompletion repairs common defects in model-produced JSON.
//
// Surrounding whitespace and Markdown code fences are removed, trailing commas before a closing
// brace or bracket are dropped, and a closing brace is appended when the text does not end in one.
func CleanCompletion(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
	}
	text = trailingComma.ReplaceAllString(text, "$1")
	if !strings.HasSuffix(text, "}") {
		text += "}"
	}
	return text
}

// DecodeCompletion cleans and decodes model output into a [models.ParsedPrompt].
func DecodeCompletion(text string) (*models.ParsedPrompt, error) {
	var parsed models.ParsedPrompt
	if err := json.Unmarshal([]byte(CleanCompletion(text)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedOutput, err)
	}
	return &parsed, nil
}

func generatorError(err error) *UpstreamError {
	ue := &UpstreamError{Service: "generator", Op: "chat completion", Err: err, Body: err.Error()}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		ue.Status = apiErr.HTTPStatusCode
		ue.Body = apiErr.Message
	case errors.As(err, &reqErr):
		ue.Status = reqErr.HTTPStatusCode
		if reqErr.Err != nil {
			ue.Body = reqErr.Err.Error()
		}
	}
	return ue
}
