// ABOUTME: Client for the remote speech generation model
// ABOUTME: Requests audio for text and returns the base64 PCM payload and its format
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/audition/internal/version"
	"github.com/harperreed/audition/pkg/audio"
)

const defaultTimeout = 90 * time.Second

// Request is one speech generation request
type Request struct {
	Text  string
	Voice string
}

// Result is the audio returned by the model. Audio is still base64 encoded.
type Result struct {
	Audio    string
	MimeType string
	Format   audio.Format
}

// Client generates speech
type Client interface {
	Synthesize(ctx context.Context, req Request) (*Result, error)
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	// BaseURL is the API root, e.g. https://generativelanguage.googleapis.com/v1beta
	BaseURL string

	// Model is the speech model name
	Model string

	// APIKey is sent in the x-goog-api-key header
	APIKey string

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client
}

// HTTPClient talks to a generateContent-style endpoint
type HTTPClient struct {
	config HTTPConfig
}

// NewHTTPClient creates a speech client
func NewHTTPClient(config HTTPConfig) (*HTTPClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("synth base URL is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("synth model is required")
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &HTTPClient{config: config}, nil
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Synthesize requests speech for req.Text
func (c *HTTPClient) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: req.Text}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	if req.Voice != "" {
		payload.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: req.Voice}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.config.BaseURL, c.config.Model)
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if c.config.APIKey != "" {
		httpReq.Header.Set("x-goog-api-key", c.config.APIKey)
	}

	log.Printf("Requesting speech: %d characters, voice %q", len([]rune(req.Text)), req.Voice)
	start := time.Now()

	resp, err := c.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call speech service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("speech service error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	data := findAudio(decoded)
	if data == nil || data.Data == "" {
		return nil, fmt.Errorf("speech service returned no audio")
	}

	log.Printf("Speech received in %.2fs (%s)", time.Since(start).Seconds(), data.MimeType)

	return &Result{
		Audio:    data.Data,
		MimeType: data.MimeType,
		Format:   FormatFromMime(data.MimeType),
	}, nil
}

func findAudio(resp generateResponse) *inlineData {
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return p.InlineData
			}
		}
	}
	return nil
}

// FormatFromMime reads the sample rate from a MIME type such as
// "audio/L16;codec=pcm;rate=24000". Anything missing falls back to
// audio.RemoteFormat.
func FormatFromMime(mimeType string) audio.Format {
	format := audio.RemoteFormat

	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || strings.TrimSpace(key) != "rate" {
			continue
		}
		if rate, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && rate > 0 {
			format.SampleRate = rate
		}
	}

	return format
}
