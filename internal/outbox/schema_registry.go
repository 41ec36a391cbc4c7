package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const registryContentType = "application/vnd.schemaregistry.v1+json"

// ErrSubjectNotFound is returned when the registry has no version for a subject.
var ErrSubjectNotFound = errors.New("schema subject not found")

// RegistryError is a non-2xx registry response.
type RegistryError struct {
	Status  int
	Code    int
	Message string
}

func (e *RegistryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("schema registry: %d (code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("schema registry: %d: %s", e.Status, e.Message)
}

// SchemaRegistryClient registers the tracking event JSON schemas with a
// Confluent-compatible registry.
type SchemaRegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSchemaRegistryClient constructs a client for baseURL.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureSchema registers schema under subject unless the latest version
// already matches, and returns the schema ID.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	var latest struct {
		ID     int    `json:"id"`
		Schema string `json:"schema"`
	}
	err := c.do(ctx, http.MethodGet, c.subjectPath(subject)+"/latest", nil, &latest)
	switch {
	case err == nil && latest.Schema == schema:
		return latest.ID, nil
	case err != nil && !errors.Is(err, ErrSubjectNotFound):
		return 0, err
	}

	var registered struct {
		ID int `json:"id"`
	}
	body := map[string]string{"schemaType": "JSON", "schema": schema}
	if err := c.do(ctx, http.MethodPost, c.subjectPath(subject), body, &registered); err != nil {
		return 0, fmt.Errorf("register %s: %w", subject, err)
	}
	return registered.ID, nil
}

func (c *SchemaRegistryClient) subjectPath(subject string) string {
	return c.baseURL + "/subjects/" + url.PathEscape(subject) + "/versions"
}

func (c *SchemaRegistryClient) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", registryContentType)
	if in != nil {
		req.Header.Set("Content-Type", registryContentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return ErrSubjectNotFound
	}
	if resp.StatusCode >= 300 {
		return decodeRegistryError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeRegistryError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	regErr := &RegistryError{Status: resp.StatusCode}
	var envelope struct {
		ErrorCode int    `json:"error_code"`
		Message   string `json:"message"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Message != "" {
		regErr.Code, regErr.Message = envelope.ErrorCode, envelope.Message
	} else {
		regErr.Message = strings.TrimSpace(string(raw))
	}
	return regErr
}
