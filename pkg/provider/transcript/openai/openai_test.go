package openai

import (
	"testing"
)

func TestNew_EmptyAPIKey_ReturnsError(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Fatal("expected error for empty apiKey, got nil")
	}
}

func TestNew_WithOptions_DoesNotError(t *testing.T) {
	p, err := New("sk-test",
		WithBaseURL("https://custom.example.com"),
		WithModel("whisper-1"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

func TestFromVerboseJSON(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantTokens int
		wantErr    bool
	}{
		{
			name: "word array",
			payload: `{
				"language": "english",
				"duration": 2.5,
				"text": "well damn anyway",
				"words": [
					{"word": "well", "start": 0.0, "end": 0.3},
					{"word": "damn", "start": 0.4, "end": 0.7},
					{"word": "anyway", "start": 0.9, "end": 1.4}
				]
			}`,
			wantTokens: 3,
		},
		{
			name:       "empty words dropped",
			payload:    `{"words": [{"word": "", "start": 0, "end": 1}, {"word": "ok", "start": 1, "end": 2}]}`,
			wantTokens: 1,
		},
		{
			name:       "no words array",
			payload:    `{"language": "english", "duration": 1.0, "text": "hello"}`,
			wantTokens: 0,
		},
		{
			name:    "malformed payload",
			payload: `{"words": "nope"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := fromVerboseJSON([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(tr.Tokens) != tt.wantTokens {
				t.Fatalf("got %d tokens, want %d", len(tr.Tokens), tt.wantTokens)
			}
		})
	}
}

func TestFromVerboseJSON_TokenFields(t *testing.T) {
	payload := `{
		"language": "english",
		"duration": 1.5,
		"words": [{"word": "damn", "start": 0.4, "end": 0.7}]
	}`
	tr, err := fromVerboseJSON([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Language != "english" || tr.Duration != 1.5 {
		t.Errorf("transcript meta = %q/%v, want english/1.5", tr.Language, tr.Duration)
	}
	if len(tr.Tokens) != 1 {
		t.Fatalf("got %d tokens, want 1", len(tr.Tokens))
	}
	tok := tr.Tokens[0]
	if tok.Text != "damn" || tok.Start != 0.4 || tok.End != 0.7 {
		t.Errorf("token = %+v, want {damn 0.4 0.7}", tok)
	}
}
