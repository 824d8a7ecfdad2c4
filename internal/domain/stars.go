package domain

import "time"

// Owner is a user or organization account that can own repositories.
type Owner struct {
	Login       string `json:"login"`
	PublicRepos int    `json:"public_repos"`
}

// Repository is a single repository record.
type Repository struct {
	Name  string `json:"name"`
	Stars int    `json:"stargazers_count"`
	Owner string `json:"owner"`
}

// FullName returns the repository name prefixed with its owner.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Page is one zero-indexed batch of repositories returned by a single request.
type Page struct {
	Owner        string
	Index        int
	Repositories []Repository
	Transfer     Transfer
}

// Transfer describes the network cost of one or more requests.
// It is returned alongside results instead of being accumulated globally.
type Transfer struct {
	Requests int           `json:"requests"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

// Add returns the sum of two transfers.
func (t Transfer) Add(other Transfer) Transfer {
	return Transfer{
		Requests: t.Requests + other.Requests,
		Bytes:    t.Bytes + other.Bytes,
		Duration: t.Duration + other.Duration,
	}
}

// Resolution is the set of owners one run aggregates over.
type Resolution struct {
	Primary       Owner
	Organizations []Owner
}

// Result is everything the presenter needs from one aggregation run.
type Result struct {
	User          Owner         `json:"user"`
	Organizations []Owner       `json:"organizations"`
	Repositories  []Repository  `json:"repositories"`
	Stats         Stats         `json:"stats"`
	Transfer      Transfer      `json:"transfer"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Speedup is the ratio of summed request time to wall clock time.
func (r *Result) Speedup() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return r.Transfer.Duration.Seconds() / r.Elapsed.Seconds()
}
