// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/naka-gawa/github-stars/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Aggregator is the use case for counting stars across a user and their organizations.
// It orchestrates the resolving, paging and merging of repositories.
type Aggregator struct {
	resolver  *OwnerResolver
	paginator *Paginator
	logger    logrus.FieldLogger
}

// ownerRepos is the outcome of paginating one organization.
type ownerRepos struct {
	owner    domain.Owner
	repos    []domain.Repository
	transfer domain.Transfer
	ok       bool
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(resolver *OwnerResolver, paginator *Paginator, logger logrus.FieldLogger) *Aggregator {
	return &Aggregator{
		resolver:  resolver,
		paginator: paginator,
		logger:    logger,
	}
}

// Count resolves username and, if includeOrgs is set, its organizations, and
// aggregates the stars of all their repositories.
// The user's own pagination runs concurrently with the organization branch,
// in which every organization is resolved and paginated independently.
func (a *Aggregator) Count(ctx context.Context, username string, includeOrgs bool) (*domain.Result, error) {
	if err := a.paginator.Validate(); err != nil {
		return nil, err
	}
	a.logger.WithField("user", username).Info("Usecase: Starting star aggregation...")

	primary, err := a.resolver.ResolvePrimary(ctx, username)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, primary, func(ctx context.Context) ([]ownerRepos, error) {
		if !includeOrgs {
			return nil, nil
		}
		logins := a.resolver.DiscoverOrganizations(ctx, primary.Login)
		return a.paginateOrganizations(ctx, len(logins), func(ctx context.Context, i int) (domain.Owner, bool) {
			return a.resolver.ResolveOrganization(ctx, logins[i])
		})
	})
}

// Aggregate paginates already resolved owners concurrently and merges their repositories.
func (a *Aggregator) Aggregate(ctx context.Context, resolution *domain.Resolution) (*domain.Result, error) {
	if err := a.paginator.Validate(); err != nil {
		return nil, err
	}
	orgs := resolution.Organizations
	return a.run(ctx, resolution.Primary, func(ctx context.Context) ([]ownerRepos, error) {
		return a.paginateOrganizations(ctx, len(orgs), func(_ context.Context, i int) (domain.Owner, bool) {
			return orgs[i], true
		})
	})
}

// run executes the user's pagination and the organization branch as two
// tasks of a fail-fast group. The organization branch absorbs its own
// failures, so an error from the group is always fatal.
func (a *Aggregator) run(ctx context.Context, primary domain.Owner, organizations func(context.Context) ([]ownerRepos, error)) (*domain.Result, error) {
	started := time.Now()

	var primaryRepos []domain.Repository
	var primaryTransfer domain.Transfer
	var orgResults []ownerRepos

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		primaryRepos, primaryTransfer, err = a.paginator.Paginate(egCtx, primary)
		if err != nil {
			return fmt.Errorf("%w %s: %w", domain.ErrPrimaryPagination, primary.Login, err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		orgResults, err = organizations(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &domain.Result{
		User:          primary,
		Organizations: []domain.Owner{},
		Repositories:  primaryRepos,
		Transfer:      primaryTransfer,
	}
	for _, org := range orgResults {
		result.Organizations = append(result.Organizations, org.owner)
		result.Repositories = append(result.Repositories, org.repos...)
		result.Transfer = result.Transfer.Add(org.transfer)
	}
	result.Stats = domain.ComputeStats(primary.Login, result.Repositories)
	result.Elapsed = time.Since(started)

	a.logger.WithFields(logrus.Fields{
		"repositories":  len(result.Repositories),
		"organizations": len(result.Organizations),
		"stars":         result.Stats.Total,
	}).Info("Usecase: Aggregation complete.")
	a.logger.Infof("Total bytes received in body: %s", units.HumanSize(float64(result.Transfer.Bytes)))
	a.logger.Infof("Total time spent in network requests: %.2fs", result.Transfer.Duration.Seconds())
	a.logger.Infof("Wallclock time for fetching: %.2fs", result.Elapsed.Seconds())
	a.logger.Infof("Speedup due to networking concurrency: %.2fx", result.Speedup())
	return result, nil
}

// paginateOrganizations resolves and paginates count organizations
// concurrently. A failing organization is logged and contributes nothing;
// only a page size inconsistency is returned, as it is not specific to one
// organization. Results keep the order of the indices.
func (a *Aggregator) paginateOrganizations(ctx context.Context, count int, resolve func(context.Context, int) (domain.Owner, bool)) ([]ownerRepos, error) {
	results := make([]ownerRepos, count)
	var g errgroup.Group
	for i := range count {
		g.Go(func() error {
			org, ok := resolve(ctx, i)
			if !ok {
				return nil
			}
			repos, transfer, err := a.paginator.Paginate(ctx, org)
			switch {
			case err == nil:
				results[i] = ownerRepos{owner: org, repos: repos, transfer: transfer, ok: true}
			case errors.Is(err, domain.ErrPageCountConsistency):
				return fmt.Errorf("organization %s: %w", org.Login, err)
			case ctx.Err() == nil:
				a.logger.WithError(fmt.Errorf("%w %s: %w", domain.ErrOrganizationPagination, org.Login, err)).
					Warn("Skipping organization")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := make([]ownerRepos, 0, count)
	for _, r := range results {
		if r.ok {
			kept = append(kept, r)
		}
	}
	return kept, nil
}
