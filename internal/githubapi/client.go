// internal/githubapi/client.go
package githubapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"portfolio-sync/internal/model"
)

const defaultTimeout = 30 * time.Second

// Client is a wrapper around the go-github client. The underlying client is
// built lazily so the access token is resolved on first use, not at
// construction. Safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	gh        *github.Client
	tokens    TokenSource
	pageSize  int
	baseURL   string
	anonymous bool
	logger    *slog.Logger
}

// NewClient creates a Client that resolves its token from the given source.
func NewClient(tokens TokenSource, pageSize int, logger *slog.Logger) *Client {
	return &Client{
		tokens:   tokens,
		pageSize: pageSize,
		logger:   logger,
	}
}

// SetBaseURL redirects API calls to an alternate endpoint, such as a local
// test server. It must be called before the first API call.
func (c *Client) SetBaseURL(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = raw
}

// ensureClient resolves the token and builds the go-github client once.
// An empty token yields an unauthenticated client for public-only access.
func (c *Client) ensureClient(ctx context.Context) (*github.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gh != nil {
		return c.gh, nil
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &AuthError{Reason: "no access token available, configure GitHub credentials", Err: err}
	}

	httpClient := &http.Client{Timeout: defaultTimeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = defaultTimeout
	}
	c.anonymous = token == ""

	c.gh = github.NewClient(httpClient)
	if c.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(c.baseURL, "/") + "/")
		if err != nil {
			return nil, &APIError{Message: "invalid base URL: " + err.Error()}
		}
		c.gh.BaseURL = u
	}
	return c.gh, nil
}

// Validate checks that the client can reach the API with its credentials.
// Anonymous clients skip the identity probe, since /user requires a token;
// they can still list public repositories.
func (c *Client) Validate(ctx context.Context) error {
	gh, err := c.ensureClient(ctx)
	if err != nil {
		return err
	}
	if c.anonymous {
		return nil
	}

	user, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		return translateError(err)
	}
	if user.GetLogin() == "" {
		return &AuthError{Reason: "GitHub returned no login for the token owner"}
	}
	return nil
}

// AuthenticatedAccount resolves the identity of the token owner. It doubles
// as the connection check before a sync pass.
func (c *Client) AuthenticatedAccount(ctx context.Context) (*model.Account, error) {
	gh, err := c.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	user, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		return nil, translateError(err)
	}
	if user.GetLogin() == "" {
		return nil, &AuthError{Reason: "GitHub returned no login for the token owner"}
	}

	return &model.Account{
		ID:    user.GetID(),
		Login: user.GetLogin(),
		Name:  user.Name,
		Email: user.Email,
	}, nil
}

// ListRepositories fetches all repositories for the account, most recently
// updated first. It pages until a short page and aborts wholesale on any
// page error.
func (c *Client) ListRepositories(ctx context.Context, account string) ([]*github.Repository, error) {
	gh, err := c.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	var all []*github.Repository
	opts := &github.RepositoryListByUserOptions{
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: c.pageSize,
			Page:    1,
		},
	}

	for {
		c.logger.Debug("Fetching repositories page", "account", account, "page", opts.Page)

		repos, resp, err := gh.Repositories.ListByUser(ctx, account, opts)
		if err != nil {
			return nil, translateError(err)
		}
		all = append(all, repos...)

		// A short page is the last page.
		if len(repos) < c.pageSize || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.Info("Fetched repositories", "account", account, "count", len(all))
	return all, nil
}

// Languages fetches the byte-count breakdown for one repository. Language
// data is best-effort: any failure logs a warning and returns an empty map
// so the caller's sync of the repository proceeds without it.
func (c *Client) Languages(ctx context.Context, owner, repo string) map[string]int {
	gh, err := c.ensureClient(ctx)
	if err != nil {
		c.logger.Warn("Skipping language fetch", "owner", owner, "repo", repo, "error", err)
		return map[string]int{}
	}

	langs, _, err := gh.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		c.logger.Warn("Failed to fetch languages", "owner", owner, "repo", repo, "error", translateError(err))
		return map[string]int{}
	}
	return langs
}

// translateError maps go-github errors onto the local taxonomy.
func translateError(err error) error {
	switch e := err.(type) {
	case *github.RateLimitError:
		return &RateLimitError{ResetAt: e.Rate.Reset.Time}
	case *github.AbuseRateLimitError:
		reset := time.Time{}
		if e.RetryAfter != nil {
			reset = time.Now().Add(*e.RetryAfter)
		}
		return &RateLimitError{ResetAt: reset}
	case *github.ErrorResponse:
		status := 0
		if e.Response != nil {
			status = e.Response.StatusCode
		}
		switch {
		case status == http.StatusUnauthorized:
			return &AuthError{Reason: "token rejected by GitHub", Err: err}
		case status == http.StatusForbidden && strings.Contains(strings.ToLower(e.Message), "rate limit"):
			return &RateLimitError{}
		default:
			return &APIError{StatusCode: status, Message: e.Message}
		}
	default:
		return &APIError{Message: err.Error()}
	}
}
