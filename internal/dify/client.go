package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/pkg/ctxutil"
)

// RequestError is a non-2xx response from the workflow-run endpoint.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("dify workflow request failed: status=%d body=%s", e.StatusCode, e.Body)
}

// UploadError is a failed file upload: non-2xx status, or a 2xx response
// whose JSON lacks the file id.
type UploadError struct {
	StatusCode int
	Body       string
	Reason     string
}

func (e *UploadError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("dify file upload failed: %s", e.Reason)
	}
	return fmt.Sprintf("dify file upload failed: status=%d body=%s", e.StatusCode, e.Body)
}

// FileUpload is one file destined for the upstream engine. Bytes carries
// content that is already in memory (base64-decoded browser uploads); Reader
// streams everything else. Bytes wins when both are set, so decoded content
// is written into the multipart part exactly once and never re-encoded.
type FileUpload struct {
	Name     string
	MimeType string
	Bytes    []byte
	Reader   io.Reader
}

// Client performs the two HTTP interactions with the upstream workflow
// engine. One Client per domain key; it owns no per-run state.
type Client struct {
	log        *logger.Logger
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger, apiURL, apiKey string) *Client {
	return &Client{
		log:    log.With("client", "DifyClient"),
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		// No overall timeout: workflow runs stream for minutes. Cancellation
		// rides on the request context.
		httpClient: &http.Client{},
	}
}

// RunWorkflow starts a streaming workflow run and returns the raw SSE body
// unconsumed. The caller owns closing it.
func (c *Client) RunWorkflow(ctx context.Context, inputs map[string]any, user string) (io.ReadCloser, error) {
	payload := map[string]any{
		"inputs":        inputs,
		"response_mode": "streaming",
		"user":          user,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, c.apiURL+"/workflows/run", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp.Body, nil
}

// UploadFile sends one file to the engine and returns its upload id.
func (c *Client) UploadFile(ctx context.Context, f FileUpload, user string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if f.Bytes != nil {
		if _, err := part.Write(f.Bytes); err != nil {
			return "", err
		}
	} else if f.Reader != nil {
		if _, err := io.Copy(part, f.Reader); err != nil {
			return "", err
		}
	} else {
		return "", &UploadError{Reason: "empty file"}
	}
	if err := writer.WriteField("user", user); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, c.apiURL+"/files/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UploadError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &UploadError{StatusCode: resp.StatusCode, Body: string(raw), Reason: "unparseable upload response"}
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", &UploadError{StatusCode: resp.StatusCode, Body: string(raw), Reason: "upload response missing id"}
	}
	return out.ID, nil
}
