package usecase

import (
	"context"
	"testing"

	"github.com/naka-gawa/github-stars/internal/domain"
	"github.com/naka-gawa/github-stars/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(fetcher gateway.Fetcher, pageSize int, opts ...PaginatorOption) *Aggregator {
	logger := discardLogger()
	return NewAggregator(NewOwnerResolver(fetcher, logger), NewPaginator(fetcher, pageSize, logger, opts...), logger)
}

func byronAndOrgs(orgs ...gateway.FixtureOwner) *faultyFetcher {
	byron := gateway.FixtureOwner{Login: "Byron", Repositories: fixtureRepos("byron", 147)}
	for _, org := range orgs {
		byron.Organizations = append(byron.Organizations, org.Login)
	}
	return newFaultyFetcher(append([]gateway.FixtureOwner{byron}, orgs...)...)
}

func starsOf(repos []domain.Repository) int {
	total := 0
	for _, repo := range repos {
		total += repo.Stars
	}
	return total
}

func reposOf(result *domain.Result, owner string) []domain.Repository {
	var repos []domain.Repository
	for _, repo := range result.Repositories {
		if repo.Owner == owner {
			repos = append(repos, repo)
		}
	}
	return repos
}

func TestAggregator_Count_UserOnly(t *testing.T) {
	fetcher := byronAndOrgs(gateway.FixtureOwner{Login: "Acme", Repositories: fixtureRepos("acme", 5)})
	aggregator := newTestAggregator(fetcher, 100)

	result, err := aggregator.Count(context.Background(), "Byron", false)
	require.NoError(t, err)

	assert.Len(t, result.Repositories, 147)
	assert.Equal(t, int64(2), fetcher.pageCalls.Load())
	assert.Zero(t, fetcher.orgListCalls.Load())
	assert.Empty(t, result.Organizations)
	assert.Equal(t, starsOf(result.Repositories), result.Stats.Total)
	assert.Len(t, result.Stats.ByUserOnly, 147)
	assert.Empty(t, result.Stats.ByOrgsOnly)
	assert.False(t, result.Stats.HasOrganizationRepos())
}

func TestAggregator_Count_WithOrganization(t *testing.T) {
	fetcher := byronAndOrgs(gateway.FixtureOwner{Login: "Acme", Repositories: fixtureRepos("acme", 5)})
	aggregator := newTestAggregator(fetcher, 100)

	result, err := aggregator.Count(context.Background(), "Byron", true)
	require.NoError(t, err)

	assert.Len(t, result.Repositories, 152)
	assert.Equal(t, []domain.Owner{{Login: "Acme", PublicRepos: 5}}, result.Organizations)
	assert.Len(t, result.Stats.ByOrgsOnly, 5)
	assert.Len(t, result.Stats.ByUserOnly, 147)
	assert.Equal(t, domain.Sum(result.Stats.ByUserOnly)+domain.Sum(result.Stats.ByOrgsOnly), result.Stats.Total)
	// The user's repositories come first.
	assert.Equal(t, "Byron", result.Repositories[0].Owner)
	assert.Equal(t, "Acme", result.Repositories[147].Owner)
}

func TestAggregator_Count_OrganizationFailures(t *testing.T) {
	orgs := []gateway.FixtureOwner{
		{Login: "Acme", Repositories: fixtureRepos("acme", 5)},
		{Login: "Initech", Repositories: fixtureRepos("initech", 3)},
		{Login: "Umbrella", Repositories: fixtureRepos("umbrella", 250)},
	}

	t.Run("resolution failure drops only that organization", func(t *testing.T) {
		fetcher := byronAndOrgs(orgs...)
		fetcher.failOwner["Initech"] = true

		result, err := newTestAggregator(fetcher, 100).Count(context.Background(), "Byron", true)
		require.NoError(t, err)
		assert.Len(t, result.Repositories, 147+5+250)
		assert.Empty(t, reposOf(result, "Initech"))
		assert.Equal(t, []domain.Owner{{Login: "Acme", PublicRepos: 5}, {Login: "Umbrella", PublicRepos: 250}}, result.Organizations)
	})

	t.Run("pagination failure drops only that organization", func(t *testing.T) {
		fetcher := byronAndOrgs(orgs...)
		fetcher.failPage["Umbrella"] = 2

		result, err := newTestAggregator(fetcher, 100).Count(context.Background(), "Byron", true)
		require.NoError(t, err)
		assert.Len(t, result.Repositories, 147+5+3)
		assert.Empty(t, reposOf(result, "Umbrella"))
	})

	t.Run("listing organizations fails", func(t *testing.T) {
		fetcher := byronAndOrgs(orgs...)
		fetcher.failOrgList = true

		result, err := newTestAggregator(fetcher, 100).Count(context.Background(), "Byron", true)
		require.NoError(t, err)
		assert.Len(t, result.Repositories, 147)
		assert.Empty(t, result.Organizations)
	})

	t.Run("page size inconsistency stays fatal", func(t *testing.T) {
		reported := 150
		fetcher := byronAndOrgs(gateway.FixtureOwner{Login: "Acme", PublicRepos: &reported, Repositories: fixtureRepos("acme", 60)})

		result, err := newTestAggregator(fetcher, 100).Count(context.Background(), "Byron", true)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrPageCountConsistency)
	})
}

func TestAggregator_Count_FatalErrors(t *testing.T) {
	acme := gateway.FixtureOwner{Login: "Acme", Repositories: fixtureRepos("acme", 5)}

	t.Run("user pagination fails regardless of organizations", func(t *testing.T) {
		for _, page := range []int{0, 1} {
			fetcher := byronAndOrgs(acme)
			fetcher.failPage["Byron"] = page

			result, err := newTestAggregator(fetcher, 100).Count(context.Background(), "Byron", true)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrPrimaryPagination)
			assert.ErrorIs(t, err, errAPI)
		}
	})

	t.Run("user cannot be resolved", func(t *testing.T) {
		fetcher := byronAndOrgs(acme)
		fetcher.failOwner["Byron"] = true

		result, err := newTestAggregator(fetcher, 100).Count(context.Background(), "Byron", true)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrPrimaryResolution)
		assert.Zero(t, fetcher.pageCalls.Load())
	})

	t.Run("invalid page size fails before any request", func(t *testing.T) {
		fetcher := byronAndOrgs(acme)

		result, err := newTestAggregator(fetcher, 0).Count(context.Background(), "Byron", true)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		assert.Zero(t, fetcher.ownerCalls.Load())
		assert.Zero(t, fetcher.orgListCalls.Load())
		assert.Zero(t, fetcher.pageCalls.Load())
	})
}

func TestAggregator_Count_Idempotent(t *testing.T) {
	fetcher := byronAndOrgs(
		gateway.FixtureOwner{Login: "Acme", Repositories: fixtureRepos("acme", 5)},
		gateway.FixtureOwner{Login: "Initech", Repositories: fixtureRepos("initech", 120)},
	)
	aggregator := newTestAggregator(fetcher, 50)

	first, err := aggregator.Count(context.Background(), "Byron", true)
	require.NoError(t, err)
	second, err := aggregator.Count(context.Background(), "Byron", true)
	require.NoError(t, err)

	assert.Equal(t, first.Stats, second.Stats)
	assert.ElementsMatch(t, first.Repositories, second.Repositories)
}

func TestAggregator_Aggregate(t *testing.T) {
	fetcher := byronAndOrgs(
		gateway.FixtureOwner{Login: "Acme", Repositories: fixtureRepos("acme", 5)},
		gateway.FixtureOwner{Login: "Initech", Repositories: fixtureRepos("initech", 3)},
	)
	fetcher.failPage["Initech"] = 0
	aggregator := newTestAggregator(fetcher, 100)

	resolution, err := aggregator.resolver.Resolve(context.Background(), "Byron", true)
	require.NoError(t, err)
	require.Len(t, resolution.Organizations, 2)

	result, err := aggregator.Aggregate(context.Background(), resolution)
	require.NoError(t, err)
	assert.Len(t, result.Repositories, 152)
	assert.Equal(t, []domain.Owner{{Login: "Acme", PublicRepos: 5}}, result.Organizations)
	assert.Equal(t, starsOf(result.Repositories), result.Stats.Total)
	assert.Equal(t, 3, result.Transfer.Requests)
}
