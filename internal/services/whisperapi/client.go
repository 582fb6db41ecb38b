package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"visiogen/internal/captions"
	"visiogen/internal/services"
)

// Name identifies the provider in cache keys and logs.
const Name = "whisper_api"

// TranscriptionsPath is appended to base URLs that do not already name it.
const TranscriptionsPath = "/v1/audio/transcriptions"

// Config configures the API client.
type Config struct {
	URL      string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// Client calls a Whisper-compatible transcription endpoint.
type Client struct {
	url      string
	apiKey   string
	model    string
	language string
	client   *http.Client
}

// Response is the verbose_json payload.
type Response struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Words    []Word    `json:"words"`
	Segments []Segment `json:"segments"`
}

// Word is a word with start/end timestamps.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a verbose_json segment; some servers attach words here.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// New creates a client. A base URL without a path gets TranscriptionsPath.
func New(cfg Config) *Client {
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if !strings.HasSuffix(url, TranscriptionsPath) {
		url += TranscriptionsPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		url:      url,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    strings.TrimSpace(cfg.Model),
		language: strings.TrimSpace(cfg.Language),
		client:   &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient swaps the underlying HTTP client (for testing).
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.client = client
	}
	return c
}

// Name identifies the provider.
func (c *Client) Name() string { return Name }

// Model returns the requested model name.
func (c *Client) Model() string { return c.model }

// Language returns the language hint.
func (c *Client) Language() string { return c.language }

// Transcribe uploads audioPath and returns its word timings in spoken order.
// workDir is unused; the API keeps no local artifacts.
func (c *Client) Transcribe(ctx context.Context, audioPath, _ string) ([]captions.WordTiming, error) {
	resp, err := c.Request(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	return resp.WordTimings(), nil
}

// Request performs the HTTP call and decodes the response.
func (c *Client) Request(ctx context.Context, audioPath string) (*Response, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrResourceOpen, "transcribe", "whisper api", "open audio file", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, services.Wrap(services.ErrResourceOpen, "transcribe", "whisper api", "read audio file", err)
	}

	fields := [][2]string{
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
		{"temperature", "0.00"},
	}
	if c.model != "" {
		fields = append(fields, [2]string{"model", c.model})
	}
	if c.language != "" {
		fields = append(fields, [2]string{"language", c.language})
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", field[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "whisper api", "build request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := services.FromContext(ctx, "transcribe", "whisper api"); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "whisper api", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "whisper api", "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrExternalTool
		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			marker = services.ErrConfiguration
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "transcribe", "whisper api",
			fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 300)), nil)
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "whisper api", "decode response", err)
	}
	return &result, nil
}

// WordTimings returns top-level words when present, otherwise the words nested
// in segments.
func (r *Response) WordTimings() []captions.WordTiming {
	if len(r.Words) > 0 {
		return convertWords(r.Words)
	}
	segments := make([]captions.Segment, 0, len(r.Segments))
	for _, seg := range r.Segments {
		segments = append(segments, captions.Segment{Text: seg.Text, Start: seg.Start, End: seg.End, Words: convertWords(seg.Words)})
	}
	return captions.FlattenSegments(segments)
}

func convertWords(words []Word) []captions.WordTiming {
	out := make([]captions.WordTiming, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		out = append(out, captions.WordTiming{Text: text, Start: w.Start, End: w.End})
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
