package sheetclient

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
	"time"
)

const uploadPath = "/api/upload"

// Same escaping as multipart.Writer.CreateFormFile.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadResult is the success payload of POST /api/upload.
type UploadResult struct {
	OK        bool   `json:"ok"`
	ProjectID string `json:"projectId"`
	SavedPath string `json:"savedPath"`
}

// UploadError is a non-success HTTP response. Message is the server supplied
// "error" field, or "Upload failed" when the body was not JSON.
type UploadError struct {
	Status  int
	Message string
}

func (e *UploadError) Error() string { return e.Message }

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Upload posts cand as the multipart "file" field.
func (c *Client) Upload(ctx context.Context, cand Candidate) (*UploadResult, error) {
	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+quoteEscaper.Replace(cand.Name)+`"`)
	contentType := cand.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mpw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(cand.Data); err != nil {
		return nil, fmt.Errorf("write form part: %w", err)
	}
	if err := mpw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+uploadPath, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mpw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := "Upload failed"
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, &UploadError{Status: resp.StatusCode, Message: msg}
	}

	// A 2xx status is success even if the body does not decode.
	var res UploadResult
	_ = json.Unmarshal(raw, &res)
	return &res, nil
}
