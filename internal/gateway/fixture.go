package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/naka-gawa/github-stars/internal/domain"
	"github.com/sirupsen/logrus"
)

// FixtureOwner is one account in a fixture file.
type FixtureOwner struct {
	Login string `json:"login"`
	// PublicRepos overrides the reported repository count when set,
	// which lets a fixture simulate a stale count.
	PublicRepos   *int                `json:"public_repos,omitempty"`
	Organizations []string            `json:"organizations,omitempty"`
	Repositories  []FixtureRepository `json:"repositories"`
}

// FixtureRepository is one repository in a fixture file.
type FixtureRepository struct {
	Name  string `json:"name"`
	Stars int    `json:"stargazers_count"`
}

// FixtureGateway serves owners and repositories from a JSON document.
// It is used for dry runs and never touches the network.
type FixtureGateway struct {
	owners map[string]FixtureOwner
	logger logrus.FieldLogger
}

// LoadFixture reads a fixture file of the form {"owners": [...]}.
func LoadFixture(path string, logger logrus.FieldLogger) (*FixtureGateway, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var doc struct {
		Owners []FixtureOwner `json:"owners"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return NewFixtureGateway(doc.Owners, logger), nil
}

// NewFixtureGateway builds a gateway over in-memory owners.
func NewFixtureGateway(owners []FixtureOwner, logger logrus.FieldLogger) *FixtureGateway {
	byLogin := make(map[string]FixtureOwner, len(owners))
	for _, owner := range owners {
		byLogin[owner.Login] = owner
	}
	return &FixtureGateway{owners: byLogin, logger: logger}
}

func (f *FixtureGateway) lookup(login string) (FixtureOwner, error) {
	owner, ok := f.owners[login]
	if !ok {
		return FixtureOwner{}, fmt.Errorf("fixture has no owner %q", login)
	}
	return owner, nil
}

// FetchOwner resolves a login from the fixture.
func (f *FixtureGateway) FetchOwner(_ context.Context, login string) (domain.Owner, error) {
	owner, err := f.lookup(login)
	if err != nil {
		return domain.Owner{}, err
	}
	count := len(owner.Repositories)
	if owner.PublicRepos != nil {
		count = *owner.PublicRepos
	}
	return domain.Owner{Login: owner.Login, PublicRepos: count}, nil
}

// ListOrganizations returns the fixture's organization logins for login.
func (f *FixtureGateway) ListOrganizations(_ context.Context, login string) ([]string, error) {
	owner, err := f.lookup(login)
	if err != nil {
		return nil, err
	}
	return owner.Organizations, nil
}

// FetchRepositoryPage slices the owner's repositories into pages of perPage.
func (f *FixtureGateway) FetchRepositoryPage(ctx context.Context, login string, page, perPage int) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}
	owner, err := f.lookup(login)
	if err != nil {
		return domain.Page{}, err
	}
	if perPage <= 0 {
		return domain.Page{}, fmt.Errorf("%w: per page must be positive", domain.ErrInvalidConfiguration)
	}
	start := min(page*perPage, len(owner.Repositories))
	end := min(start+perPage, len(owner.Repositories))

	result := domain.Page{
		Owner:        owner.Login,
		Index:        page,
		Repositories: make([]domain.Repository, 0, end-start),
		Transfer:     domain.Transfer{Requests: 1},
	}
	for _, repo := range owner.Repositories[start:end] {
		result.Repositories = append(result.Repositories, domain.Repository{
			Name:  repo.Name,
			Stars: repo.Stars,
			Owner: owner.Login,
		})
	}
	f.logger.WithFields(logrus.Fields{"login": login, "page": page, "repos": len(result.Repositories)}).Debug("Served fixture page")
	return result, nil
}
