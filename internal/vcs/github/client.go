package github

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

// perPage is the number of repositories requested per listing page.
const perPage = 100

// Client is a wrapper around the GitHub REST API with rate limiting and
// tracing.
type Client struct {
	httpClient  *http.Client
	rateLimiter *common.RateLimiter
	baseURL     string
	token       string
	tracer      trace.Tracer
}

// NewClient creates a new GitHub client with rate limiting.
// GitHub's default rate limit is 5000 requests per hour; the limiter is set
// conservatively below that.
func NewClient(baseURL string, creds *credentials.Credentials, httpClient *http.Client, tracer trace.Tracer) *Client {
	var token string
	if creds != nil {
		token = creds.Token
	}
	return &Client{
		httpClient:  httpClient,
		rateLimiter: common.NewRateLimiter(1.25, 5),
		baseURL:     baseURL,
		token:       token,
		tracer:      tracer,
	}
}

// repoRecord represents one repository entry from the org repos listing.
type repoRecord struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
}

// commitRecord is one entry of the commits endpoint response.
type commitRecord struct {
	SHA string `json:"sha"`
}

// ListRepositories retrieves all repositories for a GitHub organization,
// following page numbers until a short page comes back.
func (c *Client) ListRepositories(ctx context.Context, org string) ([]repoRecord, error) {
	ctx, span := c.tracer.Start(ctx, "github_client.list_repositories",
		trace.WithAttributes(attribute.String("org", org)))
	defer span.End()

	var repos []repoRecord
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s/orgs/%s/repos?per_page=%d&page=%d",
			c.baseURL, url.PathEscape(org), perPage, page)

		var batch []repoRecord
		if _, err := c.doGet(ctx, u, &batch); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to list repositories")
			return nil, err
		}

		repos = append(repos, batch...)
		if len(batch) < perPage {
			break
		}
	}

	span.SetAttributes(attribute.Int("repository_count", len(repos)))
	return repos, nil
}

// LastCommit returns the latest commit hash for a repository, or ok=false if
// the repository has no commits. GitHub answers 409 for empty repositories.
func (c *Client) LastCommit(ctx context.Context, org, repoName string) (string, bool, error) {
	ctx, span := c.tracer.Start(ctx, "github_client.last_commit",
		trace.WithAttributes(
			attribute.String("org", org),
			attribute.String("repo_name", repoName),
		))
	defer span.End()

	u := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=1",
		c.baseURL, url.PathEscape(org), url.PathEscape(repoName))

	var commits []commitRecord
	status, err := c.doGet(ctx, u, &commits)
	if status == http.StatusConflict {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, err
	}

	if len(commits) == 0 {
		return "", false, nil
	}
	return commits[0].SHA, true, nil
}

// doGet performs a rate-limited GET and decodes the JSON response into out.
// It returns the response status code alongside any error so callers can
// distinguish expected provider responses from failures. Transport failures
// and unexpected statuses wrap repository.ErrUpstreamUnavailable.
func (c *Client) doGet(ctx context.Context, u string, out any) (int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("%w: unexpected status %d from %s", repository.ErrUpstreamUnavailable, resp.StatusCode, u)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response from %s: %w", u, err)
	}
	return resp.StatusCode, nil
}
