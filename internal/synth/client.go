// Package synth wraps the external text-to-speech capability behind the
// core.Synthesizer interface.
//
// The adapter performs no local retry and no caching; a failed upstream
// call surfaces to the caller with the upstream status and message
// preserved.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/narration-service/internal/core"
)

// API endpoint paths.
const (
	apiSpeech = "/v1/audio/speech"
)

// HTTP headers.
const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
)

// Audio output parameters.
const (
	responseFormatMP3 = "mp3"
)

// ErrEmptyAudio indicates the service answered OK with no audio bytes.
var ErrEmptyAudio = errors.New("received empty audio data")

// HTTPClient calls an OpenAI-compatible speech endpoint and returns raw
// MP3 bytes.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// speechRequest is the JSON payload of a speech generation call.
type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format"`
}

// speechErrorResponse is the structured error body of a failed call.
type speechErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type,omitempty"`
	} `json:"error"`
}

// NewHTTPClient configures a speech client for the service at baseURL.
// The timeout bounds every request made through this client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateSpeech converts the request text into MP3 bytes. The request is
// validated at the boundary before any I/O happens.
func (c *HTTPClient) GenerateSpeech(ctx context.Context, req core.SynthesisRequest) ([]byte, error) {
	validationErr := req.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	payload := speechRequest{
		Model:          req.Model,
		Input:          req.Text,
		Voice:          req.Voice,
		Speed:          req.Speed,
		ResponseFormat: responseFormatMP3,
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	url := c.baseURL + apiSpeech

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)

	if c.apiKey != "" {
		httpReq.Header.Set(headerAuthorization, "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request to %s: %w", core.ErrSynthesisFailed, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// parseErrorResponse decodes a structured error body, falling back to the
// raw body so upstream diagnostics are never lost.
func (c *HTTPClient) parseErrorResponse(resp *http.Response) error {
	var errorResp speechErrorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil && errorResp.Error.Message != "" {
		return fmt.Errorf("%w: %s: %s",
			core.ErrSynthesisFailed, resp.Status, errorResp.Error.Message)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf("%w: %s: %s", core.ErrSynthesisFailed, resp.Status, string(body))
}
