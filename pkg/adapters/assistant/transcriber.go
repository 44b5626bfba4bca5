package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// TranscriberConfig selects an OpenAI-compatible speech-to-text endpoint.
type TranscriberConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Enabled reports whether a transcription endpoint is configured.
func (c TranscriberConfig) Enabled() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// Transcriber implements ports.Transcriber over POST {base}/audio/transcriptions.
type Transcriber struct {
	cfg    TranscriberConfig
	client *http.Client
}

// NewTranscriber creates a transcriber. A nil client uses http.DefaultClient;
// callers bound each call with the context.
func NewTranscriber(cfg TranscriberConfig, client *http.Client) *Transcriber {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Transcriber{cfg: cfg, client: client}
}

// Transcribe converts one voice note to text.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, span := otel.Tracer("intake/assistant").Start(ctx, "Transcriber.Transcribe")
	defer span.End()

	text, err := t.transcribe(ctx, audio, mimeType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return text, err
}

func (t *Transcriber) transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("empty voice note")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("model", t.cfg.Model); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("file", "voice"+audioExtension(mimeType))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcribe: status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", errors.New("transcription is empty")
	}
	return text, nil
}

func audioExtension(mimeType string) string {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = mimeType
	}
	switch base {
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/aac", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	}
	return ".ogg"
}
