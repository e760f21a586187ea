// Command bleeper locates spoken words in audio recordings and overlays each
// occurrence with a tone.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/bleeper/internal/config"
	"github.com/MrWong99/bleeper/internal/observe"
	"github.com/MrWong99/bleeper/internal/pipeline"
	"github.com/MrWong99/bleeper/internal/redact"
	"github.com/MrWong99/bleeper/internal/redact/fuzzy"
	"github.com/MrWong99/bleeper/internal/render"
	"github.com/MrWong99/bleeper/internal/resilience"
	"github.com/MrWong99/bleeper/pkg/provider/transcript"
	oaitranscript "github.com/MrWong99/bleeper/pkg/provider/transcript/openai"
	"github.com/MrWong99/bleeper/pkg/provider/transcript/whisper"
	"github.com/MrWong99/bleeper/pkg/provider/transcript/whispercpp"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	wordsFlag := flag.String("words", "", "comma-separated words to redact (overrides config)")
	wordFile := flag.String("word-file", "", "file with one word to redact per line")
	modeFlag := flag.String("mode", "", "match mode: exact, substring, or fuzzy (overrides config)")
	padFlag := flag.Float64("pad", -1, "padding in seconds around each match (overrides config)")
	outFlag := flag.String("out", "", "output path (single input only)")
	outDir := flag.String("out-dir", "", "output directory; default is next to each input")
	concurrency := flag.Int("concurrency", 0, "max files processed in parallel (overrides config)")
	flag.Usage = usage
	flag.Parse()

	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "bleeper: no input files given")
		usage()
		return 2
	}
	if *outFlag != "" && len(inputs) > 1 {
		fmt.Fprintln(os.Stderr, "bleeper: -out requires exactly one input file; use -out-dir for batches")
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "bleeper: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
			} else {
				fmt.Fprintf(os.Stderr, "bleeper: %v\n", err)
			}
			return 1
		}
		cfg = loaded
	}
	applyFlagOverrides(cfg, *wordsFlag, *modeFlag, *padFlag, *concurrency)

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// ── Target words ──────────────────────────────────────────────────────────
	words := cfg.Redaction.Words
	if *wordFile != "" {
		fromFile, err := readWordFile(*wordFile)
		if err != nil {
			slog.Error("failed to read word file", "path", *wordFile, "err", err)
			return 1
		}
		words = append(words, fromFile...)
	}
	if len(words) == 0 {
		fmt.Fprintln(os.Stderr, "bleeper: no words to redact; use -words, -word-file, or the config file")
		return 2
	}

	spec := redact.TargetSpec{
		Words: words,
		Mode:  cfg.Redaction.Mode,
		Pad:   cfg.Redaction.Pad,
	}
	if spec.Mode == redact.ModeFuzzy {
		var fopts []fuzzy.Option
		if t := cfg.Redaction.FuzzyThreshold; t > 0 {
			fopts = append(fopts, fuzzy.WithPhoneticThreshold(t))
		}
		if t := cfg.Redaction.FuzzyTextThreshold; t > 0 {
			fopts = append(fopts, fuzzy.WithFuzzyThreshold(t))
		}
		spec.Matcher = fuzzy.New(fopts...)
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	mp, shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		slog.Error("failed to create metric instruments", "err", err)
		return 1
	}

	// ── Transcript provider ───────────────────────────────────────────────────
	provider, cleanup, err := buildProvider(cfg.Transcriber)
	if err != nil {
		slog.Error("failed to build transcript provider", "err", err)
		return 1
	}
	defer cleanup()

	// ── Redactor ──────────────────────────────────────────────────────────────
	renderer := render.New(
		render.WithToneFrequency(cfg.Redaction.ToneHz),
		render.WithToneGain(cfg.Redaction.ToneGainDB),
	)
	redactor, err := pipeline.New(provider,
		pipeline.WithRenderer(renderer),
		pipeline.WithMetrics(metrics),
	)
	if err != nil {
		slog.Error("failed to initialise pipeline", "err", err)
		return 1
	}

	slog.Info("bleeper starting",
		"inputs", len(inputs),
		"backend", cfg.Transcriber.Name,
		"mode", spec.Mode,
		"words", len(words),
	)

	// ── Process files ─────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))
	for _, input := range inputs {
		g.Go(func() error {
			out := outputPath(input, *outFlag, *outDir)
			_, err := redactor.Run(gctx, pipeline.Request{
				InputPath:  input,
				OutputPath: out,
				Spec:       spec,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("interrupted; in-flight results discarded")
		} else {
			slog.Error("run failed", "err", err)
		}
		return 1
	}

	slog.Info("all files redacted", "count", len(inputs))
	return 0
}

// usage prints CLI help to stderr.
func usage() {
	fmt.Fprintf(os.Stderr, `Usage: bleeper [flags] <audio file> [more files…]

Transcribes each audio file, finds the target words, and writes a copy with
every occurrence overlaid by a tone. Output defaults to
"<name>-redacted<ext>" next to each input.

Flags:
`)
	flag.PrintDefaults()
}

// newLogger builds the process-wide slog handler at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// applyFlagOverrides folds non-default CLI flag values into cfg.
func applyFlagOverrides(cfg *config.Config, words, mode string, pad float64, concurrency int) {
	if words != "" {
		cfg.Redaction.Words = nil
		for _, w := range strings.Split(words, ",") {
			if w = strings.TrimSpace(w); w != "" {
				cfg.Redaction.Words = append(cfg.Redaction.Words, w)
			}
		}
	}
	if mode != "" {
		cfg.Redaction.Mode = redact.MatchMode(mode)
	}
	if pad >= 0 {
		cfg.Redaction.Pad = pad
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
}

// readWordFile reads one target word per line, skipping blanks, the way the
// interactive word list worked.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words = append(words, w)
		}
	}
	return words, sc.Err()
}

// outputPath decides where the redacted copy of input goes.
func outputPath(input, outFlag, outDir string) string {
	if outFlag != "" {
		return outFlag
	}
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(filepath.Base(input), ext)
	name := base + "-redacted" + ext
	if outDir != "" {
		return filepath.Join(outDir, name)
	}
	return filepath.Join(filepath.Dir(input), name)
}

// buildProvider constructs the configured transcript backend, wrapping it in
// a fallback chain when one is configured. cleanup releases backend
// resources (loaded models); it is safe to call exactly once.
func buildProvider(tc config.TranscriberConfig) (transcript.Provider, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("provider close error", "err", err)
			}
		}
	}

	build := func(tc config.TranscriberConfig) (transcript.Provider, error) {
		switch tc.Name {
		case "whisper":
			var opts []whisper.Option
			if tc.Model != "" {
				opts = append(opts, whisper.WithModel(tc.Model))
			}
			if tc.Language != "" {
				opts = append(opts, whisper.WithLanguage(tc.Language))
			}
			return whisper.New(tc.ServerURL, opts...)
		case "whispercpp":
			var opts []whispercpp.Option
			if tc.Language != "" {
				opts = append(opts, whispercpp.WithLanguage(tc.Language))
			}
			p, err := whispercpp.New(tc.ModelPath, opts...)
			if err != nil {
				return nil, err
			}
			closers = append(closers, p.Close)
			return p, nil
		case "openai":
			var opts []oaitranscript.Option
			if tc.Model != "" {
				opts = append(opts, oaitranscript.WithModel(tc.Model))
			}
			return oaitranscript.New(tc.APIKey, opts...)
		default:
			return nil, fmt.Errorf("unknown transcriber backend %q", tc.Name)
		}
	}

	primary, err := build(tc)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if tc.Fallback == nil {
		return primary, cleanup, nil
	}

	chain := resilience.NewTranscriptFallback(tc.Name, primary)
	fb := tc.Fallback
	for fb != nil {
		p, err := build(*fb)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		chain.AddFallback(fb.Name, p)
		fb = fb.Fallback
	}
	return chain, cleanup, nil
}
