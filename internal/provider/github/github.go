// Package github implements the GitHub driver, backed by
// google/go-github and, when configured with a GitHub App installation,
// bradleyfalzon/ghinstallation for token exchange.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v66/github"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
	"github.com/AeyeOps/mgit/internal/provider"
)

// Config is the GitHub-specific slice of a mgit.ProviderConfig.
type Config struct {
	// Token is a personal access token. Mutually exclusive with the
	// GitHub App fields below.
	Token string

	// GitHub App installation auth, used instead of Token when AppID is
	// non-zero.
	AppID          int64
	InstallationID int64
	PrivateKeyPEM  []byte

	BaseURL string // empty for github.com
}

// Driver implements provider.Driver against the GitHub REST API.
type Driver struct {
	client *github.Client
	cfg    Config
}

// New builds a GitHub driver from cfg.
func New(cfg Config) (*Driver, error) {
	hc := &http.Client{Timeout: 30 * time.Second}

	if cfg.AppID != 0 {
		tr, err := ghinstallation.New(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPEM)
		if err != nil {
			return nil, mgiterrors.Auth.Wrap(fmt.Errorf("github app transport: %w", err))
		}
		hc.Transport = tr
	} else if cfg.Token != "" {
		hc.Transport = &tokenTransport{token: cfg.Token, base: http.DefaultTransport}
	} else {
		return nil, mgiterrors.Config.New("github: either Token or AppID/InstallationID/PrivateKeyPEM is required")
	}

	client := github.NewClient(hc)
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, mgiterrors.Config.Wrap(fmt.Errorf("github: invalid base url: %w", err))
		}
	}
	return &Driver{client: client, cfg: cfg}, nil
}

type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "token "+t.token)
	return t.base.RoundTrip(req)
}

func (d *Driver) Capabilities() provider.Capabilities {
	return provider.DefaultCapabilities("github")
}

func (d *Driver) Authenticate(ctx context.Context) error {
	return provider.Do(ctx, func(ctx context.Context) error {
		_, _, err := d.client.Users.Get(ctx, "")
		if err != nil {
			return classifyError(err)
		}
		return nil
	})
}

// ListRepositories enumerates every repository under org. project is
// ignored: GitHub has a 2-level org/repo hierarchy.
func (d *Driver) ListRepositories(ctx context.Context, org, project string) ([]provider.RepoListing, error) {
	opt := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var out []provider.RepoListing
	for {
		var (
			repos []*github.Repository
			resp  *github.Response
		)
		err := provider.Do(ctx, func(ctx context.Context) error {
			var listErr error
			repos, resp, listErr = d.client.Repositories.ListByOrg(ctx, org, opt)
			if listErr != nil {
				return classifyError(listErr)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, r := range repos {
			out = append(out, toListing(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return out, nil
}

func toListing(r *github.Repository) provider.RepoListing {
	var lastActivity *time.Time
	if r.PushedAt != nil {
		t := r.PushedAt.Time
		lastActivity = &t
	}
	return provider.RepoListing{
		Organization:  strings.ToLower(r.GetOwner().GetLogin()),
		Name:          r.GetName(),
		CloneURL:      r.GetCloneURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Disabled:      r.GetArchived() || r.GetDisabled(),
		Private:       r.GetPrivate(),
		SizeHintBytes: int64(r.GetSize()) * 1024,
		LastActivity:  lastActivity,
	}
}

// CloneURL returns a clone URL for the requested scheme. embed and basic
// both require a static token: GitHub App installation tokens are
// short-lived and are not embedded into a URL the caller may cache, so
// either scheme is Unsupported under App auth.
func (d *Driver) CloneURL(ctx context.Context, r provider.RepoListing, scheme provider.AuthScheme) (string, error) {
	switch scheme {
	case provider.AuthEmbed:
		if d.cfg.Token == "" {
			return "", unsupportedScheme(scheme, "github app installation auth cannot embed a short-lived token")
		}
		return strings.Replace(r.CloneURL, "https://", fmt.Sprintf("https://x-access-token:%s@", d.cfg.Token), 1), nil
	case provider.AuthBasic:
		if d.cfg.Token == "" {
			return "", unsupportedScheme(scheme, "github app installation auth cannot embed a short-lived token")
		}
		return strings.Replace(r.CloneURL, "https://", fmt.Sprintf("https://x-access-token:%s@", d.cfg.Token), 1), nil
	case provider.AuthSSH:
		return "", unsupportedScheme(scheme, "github driver does not resolve an ssh clone url")
	default:
		return "", unsupportedScheme(scheme, "unknown auth scheme")
	}
}

func unsupportedScheme(scheme provider.AuthScheme, detail string) error {
	return mgiterrors.WithCode(mgiterrors.CodeUnsupportedAuthScheme,
		fmt.Sprintf("unsupported auth scheme %q: %s", scheme, detail),
		mgiterrors.Config.New("unsupported auth scheme %q", scheme))
}

func classifyError(err error) error {
	if rlErr, ok := err.(*github.RateLimitError); ok {
		return mgiterrors.RateLimited.Wrap(rlErr)
	}
	if abuseErr, ok := err.(*github.AbuseRateLimitError); ok {
		return mgiterrors.RateLimited.Wrap(abuseErr)
	}
	if ghErr, ok := err.(*github.ErrorResponse); ok {
		if ghErr.Response != nil && (ghErr.Response.StatusCode == http.StatusUnauthorized || ghErr.Response.StatusCode == http.StatusForbidden) {
			return mgiterrors.Auth.Wrap(ghErr)
		}
		return mgiterrors.ProviderSchema.Wrap(ghErr)
	}
	return mgiterrors.Network.Wrap(err)
}
