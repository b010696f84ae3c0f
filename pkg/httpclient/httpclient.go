package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HttpRequest is a struct to hold request parameters
type HttpRequest struct {
	URL     string
	Method  string
	Body    []byte
	Headers map[string]string
}

// NewClient returns an HTTP client whose outbound calls are traced.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// SendRequest sends an HTTP request based on the given HttpRequest struct
func SendRequest(ctx context.Context, client *http.Client, req HttpRequest) (int, []byte, error) {
	request, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewBuffer(req.Body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range req.Headers {
		request.Header.Set(key, value)
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	response, err := client.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return response.StatusCode, body, nil
}
