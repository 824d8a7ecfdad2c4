// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/naka-gawa/github-stars/internal/domain"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// PageFetcher fetches one zero-indexed page of an owner's repositories.
type PageFetcher interface {
	FetchRepositoryPage(ctx context.Context, login string, page, perPage int) (domain.Page, error)
}

// OwnerFetcher resolves accounts and their organization memberships.
type OwnerFetcher interface {
	FetchOwner(ctx context.Context, login string) (domain.Owner, error)
	ListOrganizations(ctx context.Context, login string) ([]string, error)
}

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	PageFetcher
	OwnerFetcher
}

var (
	_ Fetcher = (*GitHubGateway)(nil)
	_ Fetcher = (*FixtureGateway)(nil)
)

// Settings controls how the gateway talks to GitHub.
type Settings struct {
	Token    string
	Username string
	Password string
	// BaseURL points the REST client at a GitHub Enterprise instance.
	BaseURL string
	// CacheDir enables an on-disk HTTP cache when set.
	CacheDir string
	// OrgSource is "rest" or "graphql".
	OrgSource        string
	Timeout          time.Duration
	MaxRateLimitWait time.Duration
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        logrus.FieldLogger
}

// organizationsQuery lists the organizations a user is a member of.
type organizationsQuery struct {
	User struct {
		Organizations struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				Login string
			}
		} `graphql:"organizations(first: 100, after: $cursor)"`
	} `graphql:"user(login: $login)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(settings Settings, logger logrus.FieldLogger) (*GitHubGateway, error) {
	if settings.OrgSource == "graphql" && settings.Token == "" {
		return nil, fmt.Errorf("%w: the GraphQL organization source requires GITHUB_TOKEN", domain.ErrInvalidConfiguration)
	}

	var transport http.RoundTripper = &countingTransport{base: http.DefaultTransport}
	if settings.CacheDir != "" {
		cache := httpcache.NewTransport(diskcache.New(settings.CacheDir))
		cache.Transport = transport
		transport = cache
		logger.WithField("dir", settings.CacheDir).Debug("HTTP cache enabled")
	}
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(transport,
		github_ratelimit.WithSingleSleepLimit(settings.MaxRateLimitWait, func(cbc *github_ratelimit.CallbackContext) {
			logger.Warn("Secondary rate limit exceeds the allowed wait; giving up")
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	transport = rateLimitWaiter

	switch {
	case settings.Token != "":
		transport = &oauth2.Transport{
			Base:   transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: settings.Token}),
		}
	case settings.Username != "":
		transport = &github.BasicAuthTransport{
			Username:  settings.Username,
			Password:  settings.Password,
			Transport: transport,
		}
	}
	httpClient := &http.Client{Transport: transport, Timeout: settings.Timeout}

	restClient := github.NewClient(httpClient)
	if settings.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(settings.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("%w: invalid GitHub API URL %q: %v", domain.ErrInvalidConfiguration, settings.BaseURL, err)
		}
		restClient.BaseURL = baseURL
	}

	gateway := &GitHubGateway{
		restClient: restClient,
		logger:     logger,
	}
	if settings.OrgSource == "graphql" {
		if settings.BaseURL != "" {
			gateway.graphqlClient = githubv4.NewEnterpriseClient(strings.TrimSuffix(settings.BaseURL, "/")+"/graphql", httpClient)
		} else {
			gateway.graphqlClient = githubv4.NewClient(httpClient)
		}
	}
	return gateway, nil
}

// FetchOwner resolves a login to its account record.
func (g *GitHubGateway) FetchOwner(ctx context.Context, login string) (domain.Owner, error) {
	g.logger.WithField("login", login).Debug("Fetching owner...")
	user, _, err := g.restClient.Users.Get(ctx, login)
	if err != nil {
		return domain.Owner{}, fmt.Errorf("failed to get user %s: %w", login, err)
	}
	return domain.Owner{Login: user.GetLogin(), PublicRepos: user.GetPublicRepos()}, nil
}

// ListOrganizations returns the logins of the organizations login belongs to.
func (g *GitHubGateway) ListOrganizations(ctx context.Context, login string) ([]string, error) {
	if g.graphqlClient != nil {
		return g.listOrganizationsGraphQL(ctx, login)
	}
	g.logger.WithField("login", login).Debug("Listing organizations using REST API...")
	opts := &github.ListOptions{PerPage: 100}
	var logins []string
	for {
		orgs, resp, err := g.restClient.Organizations.List(ctx, login, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list organizations of %s with REST API: %w", login, err)
		}
		for _, org := range orgs {
			logins = append(logins, org.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return logins, nil
}

func (g *GitHubGateway) listOrganizationsGraphQL(ctx context.Context, login string) ([]string, error) {
	g.logger.WithField("login", login).Debug("Listing organizations using GraphQL API...")
	variables := map[string]interface{}{
		"login":  githubv4.String(login),
		"cursor": (*githubv4.String)(nil),
	}
	var logins []string
	for {
		var q organizationsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for organizations of %s: %w", login, err)
		}
		for _, node := range q.User.Organizations.Nodes {
			logins = append(logins, node.Login)
		}
		if !q.User.Organizations.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.User.Organizations.PageInfo.EndCursor)
	}
	return logins, nil
}

// FetchRepositoryPage fetches one page of repositories owned by login.
// The returned Transfer carries the body size and request duration.
func (g *GitHubGateway) FetchRepositoryPage(ctx context.Context, login string, page, perPage int) (domain.Page, error) {
	ctx, counter := withTransferCounter(ctx)
	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{Page: page + 1, PerPage: perPage},
	}
	started := time.Now()
	repos, _, err := g.restClient.Repositories.ListByUser(ctx, login, opts)
	elapsed := time.Since(started)
	if err != nil {
		return domain.Page{}, fmt.Errorf("failed to list repositories of %s: %w", login, err)
	}
	g.logger.WithFields(logrus.Fields{
		"login":    login,
		"page":     page,
		"repos":    len(repos),
		"bytes":    counter.Load(),
		"duration": elapsed,
	}).Info("Fetched repository page")

	result := domain.Page{
		Owner:        login,
		Index:        page,
		Repositories: make([]domain.Repository, 0, len(repos)),
		Transfer:     domain.Transfer{Requests: 1, Bytes: counter.Load(), Duration: elapsed},
	}
	for _, repo := range repos {
		result.Repositories = append(result.Repositories, domain.Repository{
			Name:  repo.GetName(),
			Stars: repo.GetStargazersCount(),
			Owner: repo.GetOwner().GetLogin(),
		})
	}
	return result, nil
}
