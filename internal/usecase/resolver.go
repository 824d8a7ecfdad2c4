package usecase

import (
	"context"
	"fmt"

	"github.com/naka-gawa/github-stars/internal/domain"
	"github.com/naka-gawa/github-stars/internal/gateway"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// OwnerResolver discovers the owners a run aggregates over: the user and,
// unless suppressed, every organization the user belongs to.
type OwnerResolver struct {
	fetcher gateway.OwnerFetcher
	logger  logrus.FieldLogger
}

// NewOwnerResolver creates a new OwnerResolver instance.
func NewOwnerResolver(fetcher gateway.OwnerFetcher, logger logrus.FieldLogger) *OwnerResolver {
	return &OwnerResolver{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Resolve returns the user and the organizations that could be resolved.
// Only a failure to resolve the user itself is returned as an error.
func (r *OwnerResolver) Resolve(ctx context.Context, username string, includeOrgs bool) (*domain.Resolution, error) {
	primary, err := r.ResolvePrimary(ctx, username)
	if err != nil {
		return nil, err
	}
	resolution := &domain.Resolution{Primary: primary, Organizations: []domain.Owner{}}
	if !includeOrgs {
		return resolution, nil
	}

	logins := r.DiscoverOrganizations(ctx, primary.Login)
	resolved := make([]domain.Owner, len(logins))
	ok := make([]bool, len(logins))
	var g errgroup.Group
	for i, login := range logins {
		g.Go(func() error {
			resolved[i], ok[i] = r.ResolveOrganization(ctx, login)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, owner := range resolved {
		if ok[i] {
			resolution.Organizations = append(resolution.Organizations, owner)
		}
	}
	return resolution, nil
}

// ResolvePrimary resolves the queried user.
func (r *OwnerResolver) ResolvePrimary(ctx context.Context, username string) (domain.Owner, error) {
	owner, err := r.fetcher.FetchOwner(ctx, username)
	if err != nil {
		return domain.Owner{}, fmt.Errorf("%w %s: %w", domain.ErrPrimaryResolution, username, err)
	}
	return owner, nil
}

// DiscoverOrganizations lists the organizations of login.
// A failure is logged and treated as having no organizations.
func (r *OwnerResolver) DiscoverOrganizations(ctx context.Context, login string) []string {
	logins, err := r.fetcher.ListOrganizations(ctx, login)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.WithError(fmt.Errorf("%w of %s: %w", domain.ErrOrganizationDiscovery, login, err)).
				Warn("Continuing without organizations")
		}
		return nil
	}
	r.logger.WithFields(logrus.Fields{"login": login, "organizations": logins}).Debug("Discovered organizations")
	return logins
}

// ResolveOrganization resolves one organization. The second result is false
// when it could not be resolved; the failure is logged.
func (r *OwnerResolver) ResolveOrganization(ctx context.Context, login string) (domain.Owner, bool) {
	owner, err := r.fetcher.FetchOwner(ctx, login)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.WithError(fmt.Errorf("%w %s: %w", domain.ErrOrganizationResolution, login, err)).
				Warn("Skipping organization")
		}
		return domain.Owner{}, false
	}
	return owner, true
}
