// Package pipeline orchestrates one redaction run end to end:
// transcribe → resolve → render → export.
//
// A Redactor holds the long-lived collaborators (transcript provider handle,
// renderer, metrics); each Run is otherwise self-contained and shares no
// mutable state with other runs, so a single Redactor may serve concurrent
// runs over different files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gaudio "github.com/go-audio/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/bleeper/internal/media"
	"github.com/MrWong99/bleeper/internal/observe"
	"github.com/MrWong99/bleeper/internal/redact"
	"github.com/MrWong99/bleeper/internal/render"
	"github.com/MrWong99/bleeper/pkg/provider/transcript"
	"github.com/MrWong99/bleeper/pkg/types"
)

// Request describes one redaction run.
type Request struct {
	// InputPath is the audio file to redact. Non-WAV containers are
	// transcoded via ffmpeg before processing.
	InputPath string

	// OutputPath is where the redacted audio is written. The extension
	// selects the output container. A run either writes the complete file or
	// writes nothing.
	OutputPath string

	// Spec is the redaction request: words, match mode, padding.
	Spec redact.TargetSpec
}

// Result reports what a successful run did.
type Result struct {
	// Transcript is the recognised word sequence, for display.
	Transcript types.Transcript

	// MatchCount is the number of transcript tokens that matched.
	MatchCount int

	// Intervals is the resolved, merged redaction interval list.
	Intervals []types.RedactionInterval

	// RedactedSeconds is the total audio time overlaid with the tone.
	RedactedSeconds float64
}

// Redactor runs the redaction pipeline. Construct once with New and reuse
// across runs; all fields are read-only after construction.
type Redactor struct {
	provider transcript.Provider
	renderer *render.Renderer
	metrics  *observe.Metrics
}

// Option is a functional option for configuring a Redactor.
type Option func(*Redactor)

// WithRenderer replaces the default renderer (1 kHz tone at -3 dB).
func WithRenderer(r *render.Renderer) Option {
	return func(rd *Redactor) {
		if r != nil {
			rd.renderer = r
		}
	}
}

// WithMetrics attaches metric instruments. When absent, runs are not
// measured.
func WithMetrics(m *observe.Metrics) Option {
	return func(rd *Redactor) {
		rd.metrics = m
	}
}

// New creates a Redactor using the given transcript provider.
func New(provider transcript.Provider, opts ...Option) (*Redactor, error) {
	if provider == nil {
		return nil, errors.New("pipeline: provider must not be nil")
	}
	rd := &Redactor{
		provider: provider,
		renderer: render.New(),
	}
	for _, o := range opts {
		o(rd)
	}
	return rd, nil
}

// Run executes one redaction run. Errors are terminal: the run either
// produces a fully redacted output file or fails without writing anything.
// An empty match set is not an error — the output is then a re-encoded copy
// of the input.
func (rd *Redactor) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := rd.run(ctx, req)
	if rd.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		rd.metrics.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
	if err != nil {
		return Result{}, err
	}
	slog.Info("redaction run complete",
		"input", req.InputPath,
		"output", req.OutputPath,
		"matches", res.MatchCount,
		"intervals", len(res.Intervals),
		"redacted_seconds", fmt.Sprintf("%.2f", res.RedactedSeconds),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func (rd *Redactor) run(ctx context.Context, req Request) (Result, error) {
	if req.InputPath == "" || req.OutputPath == "" {
		return Result{}, errors.New("pipeline: input and output paths are required")
	}

	// Stage 0: bring the input into WAV form for the decoder and the
	// transcript provider.
	workWAV := req.InputPath
	if !media.IsWAV(req.InputPath) {
		tmp, err := tempWAVPath(req.InputPath)
		if err != nil {
			return Result{}, err
		}
		defer os.Remove(tmp)
		if err := media.ToWAV(ctx, req.InputPath, tmp); err != nil {
			return Result{}, err
		}
		workWAV = tmp
	}

	// Stage 1: transcription. The provider is the long-running collaborator;
	// ctx cancellation discards the in-flight result.
	tStart := time.Now()
	tr, err := rd.provider.Transcribe(ctx, workWAV)
	if rd.metrics != nil {
		rd.metrics.TranscribeDuration.Record(ctx, time.Since(tStart).Seconds())
	}
	if err != nil {
		return Result{}, err
	}
	slog.Debug("transcription complete", "tokens", len(tr.Tokens), "language", tr.Language)

	// Stage 2: decode the working WAV. The decoded buffer is the duration
	// authority — provider-reported durations are advisory only.
	buf, err := render.Load(workWAV)
	if err != nil {
		return Result{}, err
	}
	duration := render.Duration(buf)

	// Stage 3: match resolution.
	rStart := time.Now()
	intervals, err := redact.Resolve(tr.Tokens, req.Spec, duration)
	if rd.metrics != nil {
		rd.metrics.ResolveDuration.Record(ctx, time.Since(rStart).Seconds())
	}
	if err != nil {
		return Result{}, err
	}

	matchCount := redact.CountMatches(tr.Tokens, req.Spec)
	redactedSeconds := redact.TotalSeconds(intervals)
	if rd.metrics != nil {
		rd.metrics.MatchedTokens.Add(ctx, int64(matchCount))
		rd.metrics.RedactedSeconds.Add(ctx, redactedSeconds)
	}
	if len(intervals) == 0 {
		slog.Info("no matches found; output will be an unredacted copy", "input", req.InputPath)
	}

	// Stage 4: overlay and export. Rendering happens on the full-quality
	// buffer; the tone replaces samples rather than attenuating them.
	eStart := time.Now()
	rd.renderer.Redact(buf, intervals)
	err = rd.export(ctx, req.OutputPath, buf)
	if rd.metrics != nil {
		rd.metrics.RenderDuration.Record(ctx, time.Since(eStart).Seconds())
	}
	if err != nil {
		return Result{}, err
	}

	return Result{
		Transcript:      tr,
		MatchCount:      matchCount,
		Intervals:       intervals,
		RedactedSeconds: redactedSeconds,
	}, nil
}

// export writes buf to outPath, going through ffmpeg when the requested
// container is not WAV. Every path writes to a temporary file first and
// renames into place, so failures never leave partial output behind.
func (rd *Redactor) export(ctx context.Context, outPath string, buf *gaudio.IntBuffer) error {
	if media.IsWAV(outPath) {
		return render.Export(outPath, buf)
	}

	// Rendered WAV goes to a temp file, ffmpeg transcodes it next to the
	// final path (the temp name keeps the output extension so ffmpeg can
	// infer the container), then a rename publishes it.
	tmpWAV, err := tempWAVPath(outPath)
	if err != nil {
		return err
	}
	defer os.Remove(tmpWAV)
	if err := render.Export(tmpWAV, buf); err != nil {
		return err
	}

	dir := filepath.Dir(outPath)
	base := filepath.Base(outPath)
	tmpOut := filepath.Join(dir, "."+base+".partial"+filepath.Ext(outPath))
	defer os.Remove(tmpOut)
	if err := media.FromWAV(ctx, tmpWAV, tmpOut); err != nil {
		return err
	}
	if err := os.Rename(tmpOut, outPath); err != nil {
		return fmt.Errorf("pipeline: rename output into place: %w", err)
	}
	return nil
}

// tempWAVPath returns a unique temp file path ending in .wav, derived from
// the input file name.
func tempWAVPath(inputPath string) (string, error) {
	f, err := os.CreateTemp("", filepath.Base(inputPath)+".*.wav")
	if err != nil {
		return "", fmt.Errorf("pipeline: create temp wav: %w", err)
	}
	name := f.Name()
	f.Close()
	return name, nil
}
