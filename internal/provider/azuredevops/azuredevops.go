// Package azuredevops implements the Azure DevOps driver, the only
// 3-level (organization/project/repository) hierarchy mgit resolves
// against. Backed by microsoft/azure-devops-go-api.
package azuredevops

import (
	"context"
	"fmt"
	"strings"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/core"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/git"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
	"github.com/AeyeOps/mgit/internal/provider"
)

// Config is the Azure DevOps slice of a mgit.ProviderConfig.
type Config struct {
	OrganizationURL string // https://dev.azure.com/{org}
	PAT             string
}

// Driver implements provider.Driver against Azure DevOps Services.
type Driver struct {
	conn       *azuredevops.Connection
	coreClient core.Client
	gitClient  git.Client
	cfg        Config
}

// New builds an Azure DevOps driver from cfg.
func New(ctx context.Context, cfg Config) (*Driver, error) {
	if cfg.OrganizationURL == "" || cfg.PAT == "" {
		return nil, mgiterrors.Config.New("azuredevops: OrganizationURL and PAT are required")
	}
	conn := azuredevops.NewPatConnection(cfg.OrganizationURL, cfg.PAT)
	cc, err := core.NewClient(ctx, conn)
	if err != nil {
		return nil, mgiterrors.Network.Wrap(fmt.Errorf("azuredevops: core client: %w", err))
	}
	gc, err := git.NewClient(ctx, conn)
	if err != nil {
		return nil, mgiterrors.Network.Wrap(fmt.Errorf("azuredevops: git client: %w", err))
	}
	return &Driver{conn: conn, coreClient: cc, gitClient: gc, cfg: cfg}, nil
}

func (d *Driver) Capabilities() provider.Capabilities {
	return provider.DefaultCapabilities("azuredevops")
}

func (d *Driver) Authenticate(ctx context.Context) error {
	return provider.Do(ctx, func(ctx context.Context) error {
		top := 1
		_, err := d.coreClient.GetProjects(ctx, core.GetProjectsArgs{Top: &top})
		if err != nil {
			return classifyError(err)
		}
		return nil
	})
}

// ListRepositories enumerates repositories within project. An empty
// project enumerates every project's repositories in turn, since Azure
// DevOps scopes repository listing to a single project per call.
func (d *Driver) ListRepositories(ctx context.Context, org, project string) ([]provider.RepoListing, error) {
	var projects []string
	if project != "" {
		projects = []string{project}
	} else {
		var err error
		projects, err = d.listProjectNames(ctx)
		if err != nil {
			return nil, err
		}
	}

	var out []provider.RepoListing
	for _, proj := range projects {
		listing, err := d.listProjectRepositories(ctx, org, proj)
		if err != nil {
			return nil, err
		}
		out = append(out, listing...)
	}
	return out, nil
}

func (d *Driver) listProjectNames(ctx context.Context) ([]string, error) {
	var projects []string
	err := provider.Do(ctx, func(ctx context.Context) error {
		resp, err := d.coreClient.GetProjects(ctx, core.GetProjectsArgs{})
		if err != nil {
			return classifyError(err)
		}
		projects = make([]string, 0, len(resp.Value))
		for _, p := range resp.Value {
			projects = append(projects, *p.Name)
		}
		return nil
	})
	return projects, err
}

func (d *Driver) listProjectRepositories(ctx context.Context, org, proj string) ([]provider.RepoListing, error) {
	var out []provider.RepoListing
	err := provider.Do(ctx, func(ctx context.Context) error {
		repos, err := d.gitClient.GetRepositories(ctx, git.GetRepositoriesArgs{Project: &proj})
		if err != nil {
			return classifyError(fmt.Errorf("azuredevops: list repositories in %s: %w", proj, err))
		}
		out = make([]provider.RepoListing, 0, len(*repos))
		for _, r := range *repos {
			out = append(out, provider.RepoListing{
				Organization:  org,
				Project:       proj,
				Name:          *r.Name,
				CloneURL:      *r.RemoteUrl,
				DefaultBranch: derefBranch(r.DefaultBranch),
				Disabled:      r.IsDisabled != nil && *r.IsDisabled,
				SizeHintBytes: derefSize(r.Size),
			})
		}
		return nil
	})
	return out, err
}

// classifyError maps an azure-devops-go-api error into the mgit error
// taxonomy by inspecting its message, since the SDK does not expose a
// typed status code on its returned errors.
func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return mgiterrors.RateLimited.Wrap(err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "403") || strings.Contains(msg, "forbidden"):
		return mgiterrors.Auth.Wrap(err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connection") || strings.Contains(msg, "no such host"):
		return mgiterrors.Network.Wrap(err)
	default:
		return mgiterrors.ProviderSchema.Wrap(err)
	}
}

func derefBranch(b *string) string {
	if b == nil {
		return ""
	}
	return *b
}

func derefSize(s *uint64) int64 {
	if s == nil {
		return 0
	}
	return int64(*s)
}

// CloneURL embeds the PAT as the basic-auth password for embed/basic
// (Azure DevOps accepts any non-empty username with a PAT password).
// ssh is Unsupported: the driver only resolves the HTTPS remote URL.
func (d *Driver) CloneURL(ctx context.Context, r provider.RepoListing, scheme provider.AuthScheme) (string, error) {
	switch scheme {
	case provider.AuthEmbed, provider.AuthBasic:
		return strings.Replace(r.CloneURL, "https://", fmt.Sprintf("https://pat:%s@", d.cfg.PAT), 1), nil
	case provider.AuthSSH:
		return "", unsupportedScheme(scheme, "azuredevops driver does not resolve an ssh clone url")
	default:
		return "", unsupportedScheme(scheme, "unknown auth scheme")
	}
}

func unsupportedScheme(scheme provider.AuthScheme, detail string) error {
	return mgiterrors.WithCode(mgiterrors.CodeUnsupportedAuthScheme,
		fmt.Sprintf("unsupported auth scheme %q: %s", scheme, detail),
		mgiterrors.Config.New("unsupported auth scheme %q", scheme))
}
