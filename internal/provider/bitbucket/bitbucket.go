// Package bitbucket implements the Bitbucket Cloud driver, backed by
// ktrysmt/go-bitbucket.
package bitbucket

import (
	"context"
	"fmt"
	"strings"

	bb "github.com/ktrysmt/go-bitbucket"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
	"github.com/AeyeOps/mgit/internal/provider"
)

// Config is the Bitbucket slice of a mgit.ProviderConfig.
type Config struct {
	Username string
	AppPassword string
}

// Driver implements provider.Driver against Bitbucket Cloud's 2-level
// workspace/repository hierarchy (Bitbucket's "workspace" plays the role
// of mgit's "organization").
type Driver struct {
	client *bb.Client
	cfg    Config
}

// New builds a Bitbucket driver from cfg.
func New(cfg Config) (*Driver, error) {
	if cfg.Username == "" || cfg.AppPassword == "" {
		return nil, mgiterrors.Config.New("bitbucket: Username and AppPassword are required")
	}
	return &Driver{client: bb.NewBasicAuth(cfg.Username, cfg.AppPassword), cfg: cfg}, nil
}

func (d *Driver) Capabilities() provider.Capabilities {
	return provider.DefaultCapabilities("bitbucket")
}

func (d *Driver) Authenticate(ctx context.Context) error {
	return provider.Do(ctx, func(ctx context.Context) error {
		_, err := d.client.User.Profile()
		if err != nil {
			return classifyError(err)
		}
		return nil
	})
}

// ListRepositories enumerates repositories in a workspace. project is
// ignored: Bitbucket Cloud has a 2-level hierarchy.
func (d *Driver) ListRepositories(ctx context.Context, org, project string) ([]provider.RepoListing, error) {
	var out []provider.RepoListing
	err := provider.Do(ctx, func(ctx context.Context) error {
		res, err := d.client.Repositories.ListForAccount(&bb.RepositoriesOptions{Owner: org})
		if err != nil {
			return classifyError(err)
		}
		out = make([]provider.RepoListing, 0, len(res.Items))
		for _, r := range res.Items {
			out = append(out, provider.RepoListing{
				Organization:  org,
				Name:          r.Slug,
				CloneURL:      httpsCloneURL(r),
				DefaultBranch: r.Mainbranch.Name,
				Private:       r.Is_private,
			})
		}
		return nil
	})
	return out, err
}

func httpsCloneURL(r bb.Repository) string {
	for _, link := range r.Links["clone"].([]interface{}) {
		m, ok := link.(map[string]interface{})
		if !ok {
			continue
		}
		if m["name"] == "https" {
			if href, ok := m["href"].(string); ok {
				return href
			}
		}
	}
	return ""
}

// CloneURL embeds basic-auth credentials into the HTTPS remote for embed
// and basic. ssh is Unsupported: the driver only resolves the https
// clone link from the API response.
func (d *Driver) CloneURL(ctx context.Context, r provider.RepoListing, scheme provider.AuthScheme) (string, error) {
	switch scheme {
	case provider.AuthEmbed, provider.AuthBasic:
		if r.CloneURL == "" {
			return "", mgiterrors.ProviderSchema.New("bitbucket: repository %s has no https clone link", r.Name)
		}
		return strings.Replace(r.CloneURL, "https://", fmt.Sprintf("https://%s:%s@", d.cfg.Username, d.cfg.AppPassword), 1), nil
	case provider.AuthSSH:
		return "", unsupportedScheme(scheme, "bitbucket driver does not resolve an ssh clone url")
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
	msg := err.Error()
	if strings.Contains(msg, "429") {
		return mgiterrors.RateLimited.Wrap(err)
	}
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") {
		return mgiterrors.Auth.Wrap(err)
	}
	return mgiterrors.Network.Wrap(err)
}
