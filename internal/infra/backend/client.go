// Package backend provides an HTTP client for the central scan-management
// service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/domain/repository"
)

const activeRepositoriesPath = "/resc/v1/repositories/active"

const defaultTimeout = 30 * time.Second

// Client reports collector results to the management service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewClient creates a backend client for the service at baseURL (e.g.
// "http://backend:8000"). If httpClient is nil a client with a bounded
// timeout is used so a hung backend cannot stall a collection run.
func NewClient(baseURL string, httpClient *http.Client, tracer trace.Tracer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, tracer: tracer}
}

// ReportActiveRepositories posts the full repository listing for a single
// project and instance to the management service. The service uses the
// listing to flag repositories that no longer exist upstream.
func (c *Client) ReportActiveRepositories(ctx context.Context, active repository.ActiveRepositories) error {
	ctx, span := c.tracer.Start(ctx, "backend_client.report_active_repositories",
		trace.WithAttributes(
			attribute.String("project_key", active.ProjectKey),
			attribute.String("vcs_instance", active.VCSInstanceName),
			attribute.Int("repository_count", len(active.Repositories)),
		))
	defer span.End()

	body, err := json.Marshal(active)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode active repositories: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+activeRepositoriesPath, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("failed to report active repositories: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("active repositories report rejected: status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return err
	}

	span.SetStatus(codes.Ok, "reported")
	return nil
}
