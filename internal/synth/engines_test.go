package synth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"articast/internal/config"
	"articast/internal/services"
	"articast/internal/testsupport"
)

func TestOpenAIEngineSynthesize(t *testing.T) {
	var got speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected authorization %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	engine := NewOpenAIEngine(OpenAIConfig{BaseURL: srv.URL + "/", Model: "kokoro", APIKey: "secret", Speed: 1.2, RequestsPerMinute: 600})
	audio, err := engine.Synthesize(context.Background(), "Hola mundo", "ef_dora")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3fake" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if got.Model != "kokoro" || got.Input != "Hola mundo" || got.Voice != "ef_dora" || got.Format != "mp3" || got.Speed != 1.2 {
		t.Fatalf("unexpected request body %+v", got)
	}
	if engine.Format() != "mp3" {
		t.Fatalf("unexpected format %q", engine.Format())
	}
}

func TestOpenAIEngineErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "voices") {
			_ = json.NewEncoder(w).Encode(voicesResponse{Voices: []string{"ef_dora", "em_alex"}})
			return
		}
		http.Error(w, "voice not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	engine := NewOpenAIEngine(OpenAIConfig{BaseURL: srv.URL, Format: "wav"})
	_, err := engine.Synthesize(context.Background(), "text", "missing")
	if err == nil || !errors.Is(err, services.ErrSynthesis) || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("expected classified status error, got %v", err)
	}
	if _, err := engine.Synthesize(context.Background(), "  ", "v"); err == nil {
		t.Fatal("expected error for empty text")
	}

	voices, err := engine.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 || voices[0].ID != "ef_dora" {
		t.Fatalf("unexpected voices %+v", voices)
	}
	if engine.Format() != "wav" {
		t.Fatalf("unexpected format %q", engine.Format())
	}
}

func TestEdgeEngineRunsCLI(t *testing.T) {
	base := t.TempDir()
	script := `out=""
voice=""
while [ $# -gt 0 ]; do
  case "$1" in
    --write-media) out="$2"; shift 2 ;;
    --voice) voice="$2"; shift 2 ;;
    --file) cat "$2" > /dev/null; shift 2 ;;
    *) shift ;;
  esac
done
printf 'mp3:%s' "$voice" > "$out"
`
	binary := testsupport.WriteScript(t, base, "edge-tts", script)
	engine := NewEdgeEngine(binary)

	audio, err := engine.Synthesize(context.Background(), "Hola", "es-ES-AlvaroNeural")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "mp3:es-ES-AlvaroNeural" {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestCLIEngineFailureCarriesStderr(t *testing.T) {
	base := t.TempDir()
	binary := testsupport.WriteScript(t, base, "gtts-cli", "echo 'Language not supported: xx' >&2\nexit 1\n")
	engine := NewGTTSEngine(binary)

	_, err := engine.Synthesize(context.Background(), "Hola", "xx")
	if err == nil || !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "Language not supported") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestCLIEngineEmptyOutputFails(t *testing.T) {
	base := t.TempDir()
	binary := testsupport.WriteScript(t, base, "edge-tts", "exit 0\n")
	engine := NewEdgeEngine(binary)
	if _, err := engine.Synthesize(context.Background(), "Hola", "v"); err == nil {
		t.Fatal("expected failure when no audio is written")
	}
}

func TestParseEdgeVoices(t *testing.T) {
	table := `Name                               Gender    ContentCategories      VoicePersonalities
---------------------------------  --------  ---------------------  --------------------------------------
es-ES-AlvaroNeural                 Male      General                Friendly, Positive
es-ES-ElviraNeural                 Female    General                Friendly, Positive
`
	voices := parseEdgeVoices([]byte(table))
	if len(voices) != 2 || voices[0].ID != "es-ES-AlvaroNeural" || voices[0].Language != "es-ES" || voices[1].Gender != "Female" {
		t.Fatalf("unexpected table parse %+v", voices)
	}

	legacy := `Name: Microsoft Server Speech Text to Speech Voice (es-ES, AlvaroNeural)
ShortName: es-ES-AlvaroNeural
Gender: Male
Locale: es-ES

Name: Microsoft Server Speech Text to Speech Voice (es-MX, JorgeNeural)
ShortName: es-MX-JorgeNeural
Gender: Male
Locale: es-MX
`
	voices = parseEdgeVoices([]byte(legacy))
	if len(voices) != 2 || voices[1].ID != "es-MX-JorgeNeural" || voices[1].Language != "es-MX" {
		t.Fatalf("unexpected legacy parse %+v", voices)
	}
}

func TestParseGTTSLanguages(t *testing.T) {
	voices := parseGTTSLanguages([]byte("  af: Afrikaans\n  es: Spanish\nnot a language line\n"))
	if len(voices) != 2 || voices[1].ID != "es" || voices[1].Name != "Spanish" {
		t.Fatalf("unexpected languages %+v", voices)
	}
}

func TestNewRegistry(t *testing.T) {
	cfg := config.Default()
	reg := NewRegistry(cfg.TTS)
	if _, err := reg.Get(config.EngineOpenAI); err == nil {
		t.Fatal("openai engine should be absent without a base URL")
	}
	cfg.TTS.HTTP.BaseURL = "http://localhost:8880"
	reg = NewRegistry(cfg.TTS)
	if got := reg.Names(); len(got) != 3 || got[0] != "edge" || got[2] != "openai" {
		t.Fatalf("unexpected engine names %v", got)
	}
}
