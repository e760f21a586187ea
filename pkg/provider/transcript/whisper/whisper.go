// Package whisper provides a transcript provider backed by a whisper.cpp
// HTTP server.
//
// The provider decodes the input WAV, downmixes and resamples it to the
// 16 kHz mono PCM that whisper.cpp expects, and submits it as a single batch
// inference request (POST /inference, multipart/form-data) with
// response_format=verbose_json so the server returns segment-level
// timestamps. Word tokens are taken from the per-segment word arrays when
// the server reports them and interpolated across the segment otherwise.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080", whisper.WithLanguage("en"))
//	transcript, err := p.Transcribe(ctx, "recording.wav")
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/bleeper/pkg/audio"
	"github.com/MrWong99/bleeper/pkg/provider/transcript"
	"github.com/MrWong99/bleeper/pkg/types"
)

const (
	defaultLanguage = "en"
	defaultTimeout  = 5 * time.Minute
)

// Compile-time assertion that Provider implements transcript.Provider.
var _ transcript.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code sent to the whisper.cpp server
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout. Transcription of long
// recordings is slow; the default is 5 minutes.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// Provider implements transcript.Provider backed by a whisper.cpp HTTP
// server. Safe for concurrent use; each Transcribe call is an independent
// request.
type Provider struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements transcript.Provider. audioPath must point at a
// decodable WAV file.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (types.Transcript, error) {
	buf, err := audio.LoadWAV(audioPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper: %w: %w", transcript.ErrTranscriptionFailed, err)
	}
	pcm := audio.ForSTTPCM16(buf)
	if len(pcm) == 0 {
		return types.Transcript{}, fmt.Errorf("whisper: %w: audio contains no samples", transcript.ErrTranscriptionFailed)
	}
	wavBytes := audio.EncodeWAV(pcm, audio.STTSampleRate, 1)

	result, err := p.infer(ctx, wavBytes)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return types.Transcript{}, err
		}
		return types.Transcript{}, fmt.Errorf("whisper: %w: %w", transcript.ErrTranscriptionFailed, err)
	}
	return result, nil
}

// verboseResponse mirrors the whisper.cpp server's verbose_json schema.
// The words array is only present when the server runs with word-level
// timestamps enabled.
type verboseResponse struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Prob  float64 `json:"probability"`
		} `json:"words"`
	} `json:"segments"`
}

// infer POSTs the WAV to the /inference endpoint and converts the verbose
// JSON response into a Transcript.
func (p *Provider) infer(ctx context.Context, wavBytes []byte) (types.Transcript, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return types.Transcript{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(wavBytes); err != nil {
		return types.Transcript{}, fmt.Errorf("write wav data: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return types.Transcript{}, fmt.Errorf("write response_format field: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language", p.language); err != nil {
			return types.Transcript{}, fmt.Errorf("write language field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return types.Transcript{}, fmt.Errorf("write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return types.Transcript{}, fmt.Errorf("close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Transcript{}, fmt.Errorf("server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read response body: %w", err)
	}

	var vr verboseResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return types.Transcript{}, fmt.Errorf("parse JSON response: %w", err)
	}

	return fromVerbose(vr), nil
}

// fromVerbose flattens the segment/word structure into an ordered token
// sequence. Segments without word arrays are split on whitespace and the
// words spread evenly across the segment's span — coarse, but it keeps every
// recognised word addressable by the resolver.
func fromVerbose(vr verboseResponse) types.Transcript {
	t := types.Transcript{
		Language: vr.Language,
		Duration: vr.Duration,
	}
	for _, seg := range vr.Segments {
		if len(seg.Words) > 0 {
			for _, w := range seg.Words {
				text := strings.TrimSpace(w.Word)
				if text == "" {
					continue
				}
				t.Tokens = append(t.Tokens, types.WordToken{
					Text:       text,
					Start:      w.Start,
					End:        w.End,
					Confidence: w.Prob,
				})
			}
			continue
		}
		t.Tokens = append(t.Tokens, interpolateWords(seg.Text, seg.Start, seg.End)...)
	}
	return t
}

// interpolateWords splits text on whitespace and assigns each word an equal
// share of the [start, end] span.
func interpolateWords(text string, start, end float64) []types.WordToken {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	span := (end - start) / float64(len(fields))
	tokens := make([]types.WordToken, len(fields))
	for i, f := range fields {
		tokens[i] = types.WordToken{
			Text:  f,
			Start: start + float64(i)*span,
			End:   start + float64(i+1)*span,
		}
	}
	return tokens
}
