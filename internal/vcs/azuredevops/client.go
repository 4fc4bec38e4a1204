package azuredevops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/pkg/common"
)

const apiVersion = "6.0"

// Client is a wrapper around the Azure DevOps REST API with rate limiting and
// tracing.
type Client struct {
	httpClient  *http.Client
	rateLimiter *common.RateLimiter
	baseURL     string
	org         string
	token       string
	tracer      trace.Tracer
}

// NewClient creates a new Azure DevOps client with rate limiting.
func NewClient(baseURL, org string, creds *credentials.Credentials, httpClient *http.Client, tracer trace.Tracer) *Client {
	var token string
	if creds != nil {
		token = creds.Token
	}
	return &Client{
		httpClient:  httpClient,
		rateLimiter: common.NewRateLimiter(10, 20),
		baseURL:     baseURL,
		org:         org,
		token:       token,
		tracer:      tracer,
	}
}

// repoRecord represents one repository entry from the git repositories listing.
type repoRecord struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RemoteURL     string `json:"remoteUrl"`
	DefaultBranch string `json:"defaultBranch"`
}

// listResponse is the envelope Azure DevOps wraps collection results in.
type listResponse struct {
	Count int          `json:"count"`
	Value []repoRecord `json:"value"`
}

// commitResponse is the envelope for the commits endpoint.
type commitResponse struct {
	Count int `json:"count"`
	Value []struct {
		CommitID string `json:"commitId"`
	} `json:"value"`
}

// ListRepositories retrieves all git repositories for an Azure DevOps project.
// The endpoint is not paginated; the full set comes back in one response.
func (c *Client) ListRepositories(ctx context.Context, projectKey string) ([]repoRecord, error) {
	ctx, span := c.tracer.Start(ctx, "azure_devops_client.list_repositories",
		trace.WithAttributes(attribute.String("project_key", projectKey)))
	defer span.End()

	u := fmt.Sprintf("%s/%s/%s/_apis/git/repositories?api-version=%s",
		c.baseURL, url.PathEscape(c.org), url.PathEscape(projectKey), apiVersion)

	var resp listResponse
	if err := c.doGet(ctx, u, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list repositories")
		return nil, err
	}

	span.SetAttributes(attribute.Int("repository_count", resp.Count))
	return resp.Value, nil
}

// LastCommit returns the latest commit hash for a repository, or ok=false if
// the repository has no commits.
func (c *Client) LastCommit(ctx context.Context, projectKey, repoID string) (string, bool, error) {
	ctx, span := c.tracer.Start(ctx, "azure_devops_client.last_commit",
		trace.WithAttributes(
			attribute.String("project_key", projectKey),
			attribute.String("repo_id", repoID),
		))
	defer span.End()

	u := fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s/commits?searchCriteria.$top=1&api-version=%s",
		c.baseURL, url.PathEscape(c.org), url.PathEscape(projectKey), url.PathEscape(repoID), apiVersion)

	var resp commitResponse
	if err := c.doGet(ctx, u, &resp); err != nil {
		span.RecordError(err)
		return "", false, err
	}

	if resp.Count == 0 || len(resp.Value) == 0 {
		return "", false, nil
	}
	return resp.Value[0].CommitID, true, nil
}

// doGet performs a rate-limited GET and decodes the JSON response into out.
// Transport failures and non-2xx responses wrap repository.ErrUpstreamUnavailable.
func (c *Client) doGet(ctx context.Context, u string, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	// Azure DevOps PATs go over basic auth with an empty username.
	if c.token != "" {
		req.SetBasicAuth("", c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: unexpected status %d from %s", repository.ErrUpstreamUnavailable, resp.StatusCode, u)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", u, err)
	}
	return nil
}
