package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"
)

// Options configures the Gemini client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxImagePx  int
	Timeout     time.Duration
}

// Client calls the Gemini generateContent endpoint and returns the raw quiz JSON.
type Client struct {
	httpClient *http.Client
	opts       Options
	log        logrus.FieldLogger
}

func NewClient(opts Options, log logrus.FieldLogger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		log:        log.WithField("component", "gemini"),
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool {
	return c.opts.APIKey != ""
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateQuiz sends the material to the model. Images are normalized with
// PrepareImage before upload.
func (c *Client) GenerateQuiz(ctx context.Context, material domain.SourceMaterial) ([]byte, error) {
	if !c.Available() {
		return nil, external(errors.New("generation is not configured"))
	}

	parts := make([]part, 0, len(material.Images)+1)
	for i, img := range material.Images {
		prepared, err := PrepareImage(img.Data, c.opts.MaxImagePx)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: prepared.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(prepared.Data),
		}})
	}
	if text := strings.TrimSpace(material.Text); text != "" {
		parts = append(parts, part{Text: "Here is the raw text to analyze:\n\n" + text})
	}
	if len(parts) == 0 {
		return nil, domain.ErrNoSourceMaterial
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: instructions}}},
		Contents:          []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:      c.opts.Temperature,
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(c.opts.BaseURL, "/"), c.opts.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.opts.APIKey)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, external(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, external(fmt.Errorf("read response: %w", err))
	}
	c.log.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"images":  len(material.Images),
		"elapsed": time.Since(started).String(),
	}).Debug("generateContent finished")

	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, external(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(payload), 200)))
		}
		return nil, external(fmt.Errorf("parse response: %w", err))
	}
	if decoded.Error != nil {
		return nil, external(fmt.Errorf("status %d: %s", resp.StatusCode, decoded.Error.Message))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, external(fmt.Errorf("status %d", resp.StatusCode))
	}

	text := responseText(decoded)
	if text == "" {
		reason := "empty response"
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			reason = "blocked: " + decoded.PromptFeedback.BlockReason
		} else if len(decoded.Candidates) > 0 && decoded.Candidates[0].FinishReason != "" {
			reason = "empty response, finish reason " + decoded.Candidates[0].FinishReason
		}
		return nil, external(errors.New(reason))
	}
	return []byte(cleanJSON(text)), nil
}

func responseText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

// cleanJSON strips a markdown code fence some models wrap around JSON output.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func external(err error) error {
	return &domain.ExternalServiceError{Service: "gemini", Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
