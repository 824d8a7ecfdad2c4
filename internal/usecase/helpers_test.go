package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/naka-gawa/github-stars/internal/domain"
	"github.com/naka-gawa/github-stars/internal/gateway"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

var errAPI = errors.New("github api error")

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fixtureRepos builds n repositories named <prefix>-<i> with i%17 stars.
func fixtureRepos(prefix string, n int) []gateway.FixtureRepository {
	repos := make([]gateway.FixtureRepository, n)
	for i := range repos {
		repos[i] = gateway.FixtureRepository{Name: fmt.Sprintf("%s-%d", prefix, i), Stars: i % 17}
	}
	return repos
}

// faultyFetcher wraps a fetcher, injects failures and counts calls.
type faultyFetcher struct {
	gateway.Fetcher
	failOwner    map[string]bool
	failPage     map[string]int
	failOrgList  bool
	ownerCalls   atomic.Int64
	orgListCalls atomic.Int64
	pageCalls    atomic.Int64
}

func newFaultyFetcher(owners ...gateway.FixtureOwner) *faultyFetcher {
	return &faultyFetcher{
		Fetcher:   gateway.NewFixtureGateway(owners, discardLogger()),
		failOwner: map[string]bool{},
		failPage:  map[string]int{},
	}
}

func (f *faultyFetcher) FetchOwner(ctx context.Context, login string) (domain.Owner, error) {
	f.ownerCalls.Add(1)
	if f.failOwner[login] {
		return domain.Owner{}, errAPI
	}
	return f.Fetcher.FetchOwner(ctx, login)
}

func (f *faultyFetcher) ListOrganizations(ctx context.Context, login string) ([]string, error) {
	f.orgListCalls.Add(1)
	if f.failOrgList {
		return nil, errAPI
	}
	return f.Fetcher.ListOrganizations(ctx, login)
}

func (f *faultyFetcher) FetchRepositoryPage(ctx context.Context, login string, page, perPage int) (domain.Page, error) {
	f.pageCalls.Add(1)
	if failing, ok := f.failPage[login]; ok && failing == page {
		return domain.Page{}, errAPI
	}
	return f.Fetcher.FetchRepositoryPage(ctx, login, page, perPage)
}

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchOwner(ctx context.Context, login string) (domain.Owner, error) {
	args := m.Called(ctx, login)
	return args.Get(0).(domain.Owner), args.Error(1)
}

func (m *mockFetcher) ListOrganizations(ctx context.Context, login string) ([]string, error) {
	args := m.Called(ctx, login)
	// We need to handle the case where the returned slice is nil (e.g., when an error occurs).
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockFetcher) FetchRepositoryPage(ctx context.Context, login string, page, perPage int) (domain.Page, error) {
	args := m.Called(ctx, login, page, perPage)
	return args.Get(0).(domain.Page), args.Error(1)
}
