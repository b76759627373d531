// Package extraction calls the document analysis service that turns an
// identity document image into structured identity fields.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"idvet/internal/job"
	"idvet/internal/screening"
)

// ServiceName keys extraction failures in logs and audit events.
const ServiceName = "idcheck"

// Client posts document images to the extraction service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, client: client}
}

// Extract uploads the document image and returns the structured identity.
// Full name and date of birth are mandatory in the service's response; a
// response missing either is invalid, not a partial success.
func (c *Client) Extract(ctx context.Context, document io.Reader, filename string) (job.Identity, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return job.Identity{}, screening.NewProviderError(screening.FailureInvalidResponse, ServiceName, "build form", err)
	}
	if _, err := io.Copy(part, document); err != nil {
		return job.Identity{}, screening.NewProviderError(screening.FailureNetwork, ServiceName, "read document", err)
	}
	if err := mw.Close(); err != nil {
		return job.Identity{}, screening.NewProviderError(screening.FailureInvalidResponse, ServiceName, "finalize form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &buf)
	if err != nil {
		return job.Identity{}, screening.NewProviderError(screening.FailureNetwork, ServiceName, "build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return job.Identity{}, screening.ClassifyTransportError(ServiceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return job.Identity{}, screening.NewProviderError(screening.FailureNetwork, ServiceName, "read response body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return job.Identity{}, screening.ClassifyStatus(ServiceName, resp.StatusCode)
	}

	var identity job.Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return job.Identity{}, screening.NewProviderError(screening.FailureInvalidResponse, ServiceName, "decode response", err)
	}
	if identity.FullName == "" || identity.DateOfBirth == "" {
		return job.Identity{}, screening.NewProviderError(screening.FailureInvalidResponse, ServiceName, "response missing full_name or date_of_birth", nil)
	}
	return identity, nil
}
