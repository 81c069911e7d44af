// Package transcribe turns Telegram voice notes into text through a
// Whisper-compatible transcription endpoint.
package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultTimeout bounds one download-plus-transcription cycle.
const DefaultTimeout = 120 * time.Second

// Client sends audio to the transcription endpoint.
type Client struct {
	client     openai.Client
	model      string
	httpClient *http.Client
}

// New creates a transcription client. baseURL points at the
// Whisper-compatible server (for example a local faster-whisper).
func New(apiKey, baseURL, model string) *Client {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client:     openai.NewClient(opts...),
		model:      model,
		httpClient: httpClient,
	}
}

// FromURL downloads the voice file and returns its transcription.
// Telegram voice notes arrive as OGG/Opus.
func (c *Client) FromURL(ctx context.Context, fileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build voice download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download voice file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("voice download returned status %d", resp.StatusCode)
	}

	transcription, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(c.model),
		File:  openai.File(resp.Body, "voice.ogg", "audio/ogg"),
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	return transcription.Text, nil
}
