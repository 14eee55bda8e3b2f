package speech_to_text

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/google/generative-ai-go/genai"
)

const (
	DefaultGeminiModel   = "gemini-1.5-flash"
	DefaultGeminiTimeout = 10 * time.Second

	unintelligibleReply = "[unintelligible]"
)

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type geminiImpl struct {
	model   generator
	prompt  string
	timeout time.Duration
	logger  *log.Logger
}

type GeminiConfig struct {
	Client *genai.Client
	// Model defaults to DefaultGeminiModel.
	Model    string
	Language string
	// Timeout bounds one request and defaults to DefaultGeminiTimeout.
	Timeout time.Duration
	Logger  *log.Logger
}

// NewGemini transcribes through a Gemini model, sending each utterance
// inline as a wav file.
func NewGemini(cfg *GeminiConfig) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("client is nil")
	}

	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultGeminiTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	model := cfg.Client.GenerativeModel(name)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(256)

	return &geminiImpl{
		model:   model,
		prompt:  transcriptionPrompt(cfg.Language),
		timeout: timeout,
		logger:  logger,
	}, nil
}

func transcriptionPrompt(language string) string {
	prompt := "Transcribe the speech in this audio clip verbatim. Reply with the transcript only. " +
		"If there is no intelligible speech, reply with " + unintelligibleReply + "."

	if language != "" {
		prompt += " The speaker uses language code " + language + "."
	}

	return prompt
}

func (g *geminiImpl) Transcribe(ctx context.Context, buf *audio.IntBuffer) (string, error) {
	if buf.NumFrames() == 0 {
		return "", ErrUnintelligible
	}

	data, err := encodeWave(buf)
	if err != nil {
		return "", fmt.Errorf("encoding utterance: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx,
		genai.Text(g.prompt),
		genai.Blob{MIMEType: "audio/wav", Data: data},
	)
	if err != nil {
		return "", Classify(err)
	}

	text := joinSegments(responseLines(resp))

	g.logger.Debug("transcribed", "text", text)

	if text == "" {
		return "", ErrUnintelligible
	}

	return text, nil
}

// responseLines splits the text of the first candidate into lines.
func responseLines(resp *genai.GenerateContentResponse) []string {
	var lines []string

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return lines
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			lines = append(lines, strings.Split(string(text), "\n")...)
		}
	}

	return lines
}
