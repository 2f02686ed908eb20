package mgit

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
	"github.com/AeyeOps/mgit/internal/provider"
	"github.com/AeyeOps/mgit/internal/provider/azuredevops"
	"github.com/AeyeOps/mgit/internal/provider/bitbucket"
	"github.com/AeyeOps/mgit/internal/provider/github"
)

var configValidator = validator.New()

// Registry is the host-facing set of named provider configs mgit
// resolves and operates against. The zero value is not usable; build
// one with NewRegistry and add entries with RegisterConfig.
type Registry struct {
	inner *provider.Registry
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{inner: provider.NewRegistry()}
}

// RegisterConfig validates cfg and instantiates the matching driver,
// registering it under cfg.Name. driverCfg must be the Kind-specific
// config struct matching cfg.Kind (github.Config, azuredevops.Config or
// bitbucket.Config).
func (r *Registry) RegisterConfig(ctx context.Context, cfg ProviderConfig, driverCfg interface{}) error {
	if err := configValidator.Struct(cfg); err != nil {
		return mgiterrors.WithCode(mgiterrors.CodeValidation, "invalid provider config "+cfg.Name,
			mgiterrors.Validation.Wrap(err))
	}

	var (
		d   provider.Driver
		err error
	)
	switch cfg.Kind {
	case ProviderGitHub:
		ghCfg, ok := driverCfg.(github.Config)
		if !ok {
			return mgiterrors.Config.New("provider %q: expected github.Config", cfg.Name)
		}
		d, err = github.New(ghCfg)
	case ProviderAzureDevOps:
		adoCfg, ok := driverCfg.(azuredevops.Config)
		if !ok {
			return mgiterrors.Config.New("provider %q: expected azuredevops.Config", cfg.Name)
		}
		d, err = azuredevops.New(ctx, adoCfg)
	case ProviderBitbucket:
		bbCfg, ok := driverCfg.(bitbucket.Config)
		if !ok {
			return mgiterrors.Config.New("provider %q: expected bitbucket.Config", cfg.Name)
		}
		d, err = bitbucket.New(bbCfg)
	default:
		return mgiterrors.WithCode(mgiterrors.CodeUnknownProvider, "unknown provider kind: "+string(cfg.Kind),
			mgiterrors.Config.New("kind %q", cfg.Kind))
	}
	if err != nil {
		return err
	}

	caps := d.Capabilities()
	rps, burst := caps.RateRPS, caps.RateBurst
	if cfg.RateLimitRPS > 0 {
		rps = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		burst = cfg.RateLimitBurst
	}
	admit := provider.NewAdmission(caps.MaxConcurrency, rps, burst)
	r.inner.Register(cfg.Name, d, admit)
	return nil
}

// ListNames returns every registered config name in registration order.
func (r *Registry) ListNames() []string { return r.inner.ListNames() }

// ProviderHealth is the host-facing diagnostics summary for one
// registered provider config (SPEC_FULL.md supplement).
type ProviderHealth struct {
	Name          string
	Kind          ProviderKind
	Authenticated bool
	LastError     string
}

// Summary authenticates every registered driver and returns a sorted
// health snapshot.
func (r *Registry) Summary(ctx context.Context) []ProviderHealth {
	raw := r.inner.Summary(ctx)
	out := make([]ProviderHealth, len(raw))
	for i, h := range raw {
		out[i] = ProviderHealth{Name: h.Name, Kind: ProviderKind(h.Kind), Authenticated: h.Authenticated, LastError: h.LastError}
	}
	return out
}

func (r *Registry) internal() *provider.Registry { return r.inner }

// CloneURL resolves the clone URL for repo under scheme by dispatching
// to the driver registered under repo.ConfigName (spec.md §4.2). A
// driver that cannot honor scheme returns a CodeUnsupportedAuthScheme
// error.
func (r *Registry) CloneURL(ctx context.Context, repo Repository, scheme AuthScheme) (string, error) {
	entry, err := r.inner.Get(repo.ConfigName)
	if err != nil {
		return "", err
	}
	listing := provider.RepoListing{
		Organization: repo.Organization,
		Project:      repo.Project,
		Name:         repo.Name,
		CloneURL:     repo.CloneURL,
	}
	return entry.Driver.CloneURL(ctx, listing, provider.AuthScheme(scheme))
}
