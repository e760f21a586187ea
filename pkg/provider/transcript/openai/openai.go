// Package openai provides a transcript provider backed by the OpenAI audio
// transcriptions API.
//
// The provider uploads the audio file and requests verbose JSON output with
// word-level timestamp granularity (supported by whisper-1). The typed SDK
// response only surfaces the plain text, so the word array is decoded from
// the raw JSON payload.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/bleeper/pkg/provider/transcript"
	"github.com/MrWong99/bleeper/pkg/types"
)

const defaultModel = oai.AudioModelWhisper1

// Compile-time assertion that Provider implements transcript.Provider.
var _ transcript.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   oai.AudioModel
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel selects the transcription model. Defaults to whisper-1, which is
// the model that supports word timestamp granularity.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = oai.AudioModel(model)
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements transcript.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  oai.AudioModel
}

// New constructs a new OpenAI transcript Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: cfg.model}, nil
}

// verboseTranscription mirrors the verbose_json response fields the typed
// SDK struct does not expose.
type verboseTranscription struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Transcribe implements transcript.Provider.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (types.Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("openai: %w: open %q: %w", transcript.ErrTranscriptionFailed, audioPath, err)
	}
	defer f.Close()

	resp, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:                   f,
		Model:                  p.model,
		ResponseFormat:         oai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word"},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return types.Transcript{}, err
		}
		return types.Transcript{}, fmt.Errorf("openai: %w: %w", transcript.ErrTranscriptionFailed, err)
	}

	t, err := fromVerboseJSON([]byte(resp.RawJSON()))
	if err != nil {
		return types.Transcript{}, fmt.Errorf("openai: %w: %w", transcript.ErrTranscriptionFailed, err)
	}
	return t, nil
}

// fromVerboseJSON decodes the raw verbose_json payload into a Transcript.
// Words with empty text are dropped; a payload without a words array yields a
// transcript with no tokens.
func fromVerboseJSON(data []byte) (types.Transcript, error) {
	var vt verboseTranscription
	if err := json.Unmarshal(data, &vt); err != nil {
		return types.Transcript{}, fmt.Errorf("parse verbose response: %w", err)
	}

	t := types.Transcript{
		Language: vt.Language,
		Duration: vt.Duration,
	}
	for _, w := range vt.Words {
		if w.Word == "" {
			continue
		}
		t.Tokens = append(t.Tokens, types.WordToken{
			Text:  w.Word,
			Start: w.Start,
			End:   w.End,
		})
	}
	return t, nil
}
