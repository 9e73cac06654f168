package synth

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"articast/internal/config"
)

// cliEngine runs a speech tool that reads text from a file and writes an
// audio file.
type cliEngine struct {
	name    string
	binary  string
	args    func(voice, input, output string) []string
	listArg string
	parse   func([]byte) []Voice
}

// NewEdgeEngine returns the edge-tts command line engine.
func NewEdgeEngine(binary string) Engine {
	if strings.TrimSpace(binary) == "" {
		binary = "edge-tts"
	}
	return &cliEngine{
		name:   config.EngineEdge,
		binary: binary,
		args: func(voice, input, output string) []string {
			return []string{"--voice", voice, "--file", input, "--write-media", output}
		},
		listArg: "--list-voices",
		parse:   parseEdgeVoices,
	}
}

// NewGTTSEngine returns the gtts-cli engine. Its voice is a language code.
func NewGTTSEngine(binary string) Engine {
	if strings.TrimSpace(binary) == "" {
		binary = "gtts-cli"
	}
	return &cliEngine{
		name:   config.EngineGTTS,
		binary: binary,
		args: func(voice, input, output string) []string {
			return []string{"--lang", voice, "--file", input, "--output", output}
		},
		listArg: "--all",
		parse:   parseGTTSLanguages,
	}
}

func (e *cliEngine) Name() string   { return e.name }
func (e *cliEngine) Format() string { return "mp3" }

// Binary returns the executable the engine runs.
func (e *cliEngine) Binary() string { return e.binary }

func (e *cliEngine) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, failure(e.name, "synthesize", "empty text", nil)
	}
	workDir, err := os.MkdirTemp("", "articast-"+e.name+"-*")
	if err != nil {
		return nil, failure(e.name, "synthesize", "create work dir", err)
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input.txt")
	output := filepath.Join(workDir, "output."+e.Format())
	if err := os.WriteFile(input, []byte(text), 0o600); err != nil {
		return nil, failure(e.name, "synthesize", "write input", err)
	}

	cmd := exec.CommandContext(ctx, e.binary, e.args(voice, input, output)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, failure(e.name, "synthesize", "cancelled", ctxErr)
		}
		return nil, failure(e.name, "synthesize", truncate(stderr.String(), 300), err)
	}

	audio, err := os.ReadFile(output)
	if err != nil {
		return nil, failure(e.name, "synthesize", "read output", err)
	}
	if len(audio) == 0 {
		return nil, failure(e.name, "synthesize", "engine produced empty audio", nil)
	}
	return audio, nil
}

func (e *cliEngine) ListVoices(ctx context.Context) ([]Voice, error) {
	cmd := exec.CommandContext(ctx, e.binary, e.listArg)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, failure(e.name, "list voices", truncate(stderr.String(), 300), err)
	}
	voices := e.parse(out)
	if len(voices) == 0 {
		return nil, failure(e.name, "list voices", "no voices reported", nil)
	}
	return voices, nil
}

// parseEdgeVoices understands both the tabular listing of current edge-tts
// releases and the older "Key: value" blocks.
func parseEdgeVoices(out []byte) []Voice {
	var (
		voices  []Voice
		current Voice
	)
	flush := func() {
		if current.ID != "" {
			voices = append(voices, current)
		}
		current = Voice{}
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "Name:"):
			flush()
			current.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
		case strings.HasPrefix(line, "ShortName:"):
			current.ID = strings.TrimSpace(strings.TrimPrefix(line, "ShortName:"))
		case strings.HasPrefix(line, "Gender:"):
			current.Gender = strings.TrimSpace(strings.TrimPrefix(line, "Gender:"))
		case strings.HasPrefix(line, "Locale:"):
			current.Language = strings.TrimSpace(strings.TrimPrefix(line, "Locale:"))
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "Name "):
		default:
			fields := strings.Fields(line)
			if len(fields) < 2 || strings.Count(fields[0], "-") < 2 {
				continue
			}
			flush()
			parts := strings.SplitN(fields[0], "-", 3)
			voices = append(voices, Voice{
				ID:       fields[0],
				Language: parts[0] + "-" + parts[1],
				Gender:   fields[1],
			})
		}
	}
	flush()
	return voices
}

// parseGTTSLanguages reads "  code: Language" lines.
func parseGTTSLanguages(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		code, name, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok || code == "" || strings.ContainsAny(code, " \t") {
			continue
		}
		voices = append(voices, Voice{ID: code, Language: code, Name: strings.TrimSpace(name)})
	}
	return voices
}
