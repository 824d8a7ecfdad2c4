package usecase

import (
	"context"
	"fmt"

	"github.com/naka-gawa/github-stars/internal/domain"
	"github.com/naka-gawa/github-stars/internal/gateway"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Paginator fetches every page of an owner's repositories concurrently.
type Paginator struct {
	fetcher     gateway.PageFetcher
	pageSize    int
	verifyPages bool
	concurrency int
	logger      logrus.FieldLogger
}

// PaginatorOption customizes a Paginator.
type PaginatorOption func(*Paginator)

// WithoutPageVerification disables the short-page check. Used for dry runs.
func WithoutPageVerification() PaginatorOption {
	return func(p *Paginator) { p.verifyPages = false }
}

// WithConcurrency bounds the number of in-flight page requests per owner.
// Zero or less means unbounded.
func WithConcurrency(n int) PaginatorOption {
	return func(p *Paginator) { p.concurrency = n }
}

// NewPaginator creates a new Paginator instance.
func NewPaginator(fetcher gateway.PageFetcher, pageSize int, logger logrus.FieldLogger, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		fetcher:     fetcher,
		pageSize:    pageSize,
		verifyPages: true,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate reports a configuration that can never paginate.
func (p *Paginator) Validate() error {
	if p.pageSize <= 0 {
		return fmt.Errorf("%w: page size must be greater than 0, got %d", domain.ErrInvalidConfiguration, p.pageSize)
	}
	return nil
}

// PageCount is the number of pages requested for owner. One page more than
// the reported count strictly needs is always requested, so an owner
// reporting zero repositories still gets page 0 fetched.
func (p *Paginator) PageCount(owner domain.Owner) int {
	return max(owner.PublicRepos, 0)/p.pageSize + 1
}

// Paginate fetches all repositories of owner.
// Pages are requested concurrently and merged in page order. The first failed
// page fails the call and no further pages are started.
func (p *Paginator) Paginate(ctx context.Context, owner domain.Owner) ([]domain.Repository, domain.Transfer, error) {
	if err := p.Validate(); err != nil {
		return nil, domain.Transfer{}, err
	}
	pageCount := p.PageCount(owner)
	p.logger.WithFields(logrus.Fields{"login": owner.Login, "pages": pageCount}).Debug("Paginating repositories...")

	pages := make([]domain.Page, pageCount)
	eg, egCtx := errgroup.WithContext(ctx)
	if p.concurrency > 0 {
		eg.SetLimit(p.concurrency)
	}
	for i := range pageCount {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			page, err := p.fetcher.FetchRepositoryPage(egCtx, owner.Login, i, p.pageSize)
			if err != nil {
				return &domain.PageError{Owner: owner.Login, Page: i, Err: err}
			}
			pages[i] = page
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, domain.Transfer{}, err
	}

	if p.verifyPages {
		for i, page := range pages[:pageCount-1] {
			if len(page.Repositories) != p.pageSize {
				return nil, domain.Transfer{}, &domain.PageSizeError{
					Owner:    owner.Login,
					Page:     i,
					PageSize: p.pageSize,
					Got:      len(page.Repositories),
				}
			}
		}
	}

	var transfer domain.Transfer
	repos := make([]domain.Repository, 0, max(owner.PublicRepos, 0))
	for _, page := range pages {
		transfer = transfer.Add(page.Transfer)
		for _, repo := range page.Repositories {
			// Repositories are attributed to the owner that was paged.
			repo.Owner = owner.Login
			repos = append(repos, repo)
		}
	}
	return repos, transfer, nil
}
