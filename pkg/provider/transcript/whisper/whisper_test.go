package whisper_test

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/bleeper/pkg/audio"
	"github.com/MrWong99/bleeper/pkg/provider/transcript"
	"github.com/MrWong99/bleeper/pkg/provider/transcript/whisper"
)

// newMockServer creates a test server that answers POST /inference with the
// given JSON body. It stores the parsed multipart form of the last request in
// *gotForm when non-nil.
func newMockServer(t *testing.T, responseJSON string, gotForm *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if gotForm != nil {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			form := make(map[string]string)
			for key, vals := range r.MultipartForm.Value {
				if len(vals) > 0 {
					form[key] = vals[0]
				}
			}
			if fhs := r.MultipartForm.File["file"]; len(fhs) > 0 {
				form["file"] = fhs[0].Filename
			}
			*gotForm = form
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responseJSON))
	}))
}

// writeTestWAV writes a short 16 kHz mono sine WAV and returns its path.
func writeTestWAV(t *testing.T) string {
	t.Helper()
	const samples = 1600
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(audio.STTSampleRate)))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(path, audio.EncodeWAV(pcm, audio.STTSampleRate, 1), 0o644); err != nil {
		t.Fatalf("write test wav: %v", err)
	}
	return path
}

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	_, err := whisper.New("")
	if err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestTranscribe_WordTimestamps(t *testing.T) {
	srv := newMockServer(t, `{
		"language": "en",
		"duration": 1.5,
		"segments": [{
			"start": 0.0, "end": 1.5, "text": "well damn anyway",
			"words": [
				{"word": " well", "start": 0.0, "end": 0.3, "probability": 0.98},
				{"word": " damn", "start": 0.4, "end": 0.7, "probability": 0.91},
				{"word": " anyway", "start": 0.9, "end": 1.4, "probability": 0.95}
			]
		}]
	}`, nil)
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr, err := p.Transcribe(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if tr.Language != "en" || tr.Duration != 1.5 {
		t.Errorf("transcript meta = %q/%v, want en/1.5", tr.Language, tr.Duration)
	}
	if len(tr.Tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(tr.Tokens))
	}
	tok := tr.Tokens[1]
	if tok.Text != "damn" || tok.Start != 0.4 || tok.End != 0.7 || tok.Confidence != 0.91 {
		t.Errorf("token = %+v, want {damn 0.4 0.7 0.91}", tok)
	}
}

func TestTranscribe_InterpolatesSegmentWords(t *testing.T) {
	// No per-word array: the segment text is split and spread evenly across
	// the segment's span.
	srv := newMockServer(t, `{
		"language": "en",
		"duration": 2.5,
		"segments": [{"start": 1.0, "end": 2.5, "text": " damn it all"}]
	}`, nil)
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr, err := p.Transcribe(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if len(tr.Tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(tr.Tokens))
	}
	wantTexts := []string{"damn", "it", "all"}
	for i, want := range wantTexts {
		if tr.Tokens[i].Text != want {
			t.Errorf("token %d text = %q, want %q", i, tr.Tokens[i].Text, want)
		}
	}
	const eps = 1e-9
	if math.Abs(tr.Tokens[0].Start-1.0) > eps || math.Abs(tr.Tokens[0].End-1.5) > eps {
		t.Errorf("token 0 span = [%v, %v], want [1.0, 1.5]", tr.Tokens[0].Start, tr.Tokens[0].End)
	}
	if math.Abs(tr.Tokens[2].End-2.5) > eps {
		t.Errorf("last token ends at %v, want 2.5", tr.Tokens[2].End)
	}
	for i := 1; i < len(tr.Tokens); i++ {
		if tr.Tokens[i].Start < tr.Tokens[i-1].End-eps {
			t.Errorf("token %d starts at %v before previous end %v", i, tr.Tokens[i].Start, tr.Tokens[i-1].End)
		}
	}
}

func TestTranscribe_SendsFormFields(t *testing.T) {
	var gotForm map[string]string
	srv := newMockServer(t, `{"language": "en", "segments": []}`, &gotForm)
	defer srv.Close()

	p, err := whisper.New(srv.URL, whisper.WithModel("base.en"), whisper.WithLanguage("de"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), writeTestWAV(t)); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if gotForm["response_format"] != "verbose_json" {
		t.Errorf("response_format = %q, want verbose_json", gotForm["response_format"])
	}
	if gotForm["language"] != "de" {
		t.Errorf("language = %q, want de", gotForm["language"])
	}
	if gotForm["model"] != "base.en" {
		t.Errorf("model = %q, want base.en", gotForm["model"])
	}
	if gotForm["file"] == "" {
		t.Error("no file part in the inference request")
	}
}

func TestTranscribe_ServerError_WrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Transcribe(context.Background(), writeTestWAV(t))
	if !errors.Is(err, transcript.ErrTranscriptionFailed) {
		t.Fatalf("Transcribe error = %v, want ErrTranscriptionFailed", err)
	}
}

func TestTranscribe_CancelledContext_PassedThrough(t *testing.T) {
	srv := newMockServer(t, `{"segments": []}`, nil)
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Transcribe(ctx, writeTestWAV(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Transcribe error = %v, want context.Canceled", err)
	}
}
