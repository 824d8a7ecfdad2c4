// Package domain contains the core data structures and domain logic for the application.
package domain

// Stats holds the star totals of one aggregation run.
// It is computed once from the complete merged repository set, before any
// display filtering, so totals never depend on a repo limit.
type Stats struct {
	Total      int   `json:"total"`
	ByUserOnly []int `json:"total_by_user_only"`
	ByOrgsOnly []int `json:"total_by_orgs_only"`
}

// ComputeStats splits star counts by whether a repository is owned by login.
func ComputeStats(login string, repos []Repository) Stats {
	stats := Stats{
		ByUserOnly: []int{},
		ByOrgsOnly: []int{},
	}
	for _, repo := range repos {
		stats.Total += repo.Stars
		if repo.Owner == login {
			stats.ByUserOnly = append(stats.ByUserOnly, repo.Stars)
		} else {
			stats.ByOrgsOnly = append(stats.ByOrgsOnly, repo.Stars)
		}
	}
	return stats
}

// HasOrganizationRepos reports whether any repository came from an organization.
func (s Stats) HasOrganizationRepos() bool {
	return len(s.ByOrgsOnly) > 0
}

// Sum adds up a list of star counts.
func Sum(stars []int) int {
	total := 0
	for _, n := range stars {
		total += n
	}
	return total
}
