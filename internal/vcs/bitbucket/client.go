package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/pkg/common"
)

// pageSize is the number of repositories requested per listing page.
const pageSize = 100

// Client is a wrapper around the Bitbucket Server REST API with rate limiting
// and tracing.
type Client struct {
	httpClient  *http.Client
	rateLimiter *common.RateLimiter
	baseURL     string
	token       string
	tracer      trace.Tracer
}

// NewClient creates a new Bitbucket client with rate limiting.
func NewClient(baseURL string, creds *credentials.Credentials, httpClient *http.Client, tracer trace.Tracer) *Client {
	var token string
	if creds != nil {
		token = creds.Token
	}
	return &Client{
		httpClient:  httpClient,
		rateLimiter: common.NewRateLimiter(10, 20),
		baseURL:     baseURL,
		token:       token,
		tracer:      tracer,
	}
}

// repoRecord represents one repository entry from the Bitbucket repos listing.
type repoRecord struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Links struct {
		Clone []struct {
			Href string `json:"href"`
			Name string `json:"name"`
		} `json:"clone"`
	} `json:"links"`
}

// repoPage is a page of the Bitbucket repos listing response.
type repoPage struct {
	Values        []repoRecord `json:"values"`
	IsLastPage    bool         `json:"isLastPage"`
	NextPageStart int          `json:"nextPageStart"`
}

// commitPage is the response shape for the commits endpoint.
type commitPage struct {
	Values []struct {
		ID string `json:"id"`
	} `json:"values"`
}

// ListRepositories retrieves all repositories for a Bitbucket project,
// following the listing's pagination until the last page.
func (c *Client) ListRepositories(ctx context.Context, projectKey string) ([]repoRecord, error) {
	ctx, span := c.tracer.Start(ctx, "bitbucket_client.list_repositories",
		trace.WithAttributes(attribute.String("project_key", projectKey)))
	defer span.End()

	var repos []repoRecord
	start := 0
	for {
		url := fmt.Sprintf("%s/rest/api/1.0/projects/%s/repos?start=%d&limit=%d",
			c.baseURL, projectKey, start, pageSize)

		var page repoPage
		if err := c.doGet(ctx, url, &page); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to list repositories")
			return nil, err
		}

		repos = append(repos, page.Values...)
		if page.IsLastPage {
			break
		}
		start = page.NextPageStart
	}

	span.SetAttributes(attribute.Int("repository_count", len(repos)))
	return repos, nil
}

// LastCommit returns the latest commit hash for a repository, or ok=false if
// the repository has no commits.
func (c *Client) LastCommit(ctx context.Context, projectKey, repoSlug string) (string, bool, error) {
	ctx, span := c.tracer.Start(ctx, "bitbucket_client.last_commit",
		trace.WithAttributes(
			attribute.String("project_key", projectKey),
			attribute.String("repo_slug", repoSlug),
		))
	defer span.End()

	url := fmt.Sprintf("%s/rest/api/1.0/projects/%s/repos/%s/commits?limit=1",
		c.baseURL, projectKey, repoSlug)

	var page commitPage
	if err := c.doGet(ctx, url, &page); err != nil {
		span.RecordError(err)
		return "", false, err
	}

	if len(page.Values) == 0 {
		return "", false, nil
	}
	return page.Values[0].ID, true, nil
}

// doGet performs a rate-limited GET and decodes the JSON response into out.
// Transport failures and non-2xx responses wrap repository.ErrUpstreamUnavailable.
func (c *Client) doGet(ctx context.Context, url string, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: unexpected status %d from %s", repository.ErrUpstreamUnavailable, resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}
