// Package presenter turns an aggregation result into text, JSON or a
// user-supplied template.
package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/github-stars/internal/domain"
)

// Options control which repositories are listed. They never affect totals.
type Options struct {
	RepoLimit          int
	StargazerThreshold int
}

// Entry is one displayed repository.
type Entry struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Stars int    `json:"stars"`
}

// Distribution summarizes a set of star counts.
type Distribution struct {
	Count  int     `json:"count"`
	Total  int     `json:"total"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    int     `json:"max"`
}

// View is the data handed to every output format, including templates.
type View struct {
	User          domain.Owner   `json:"user"`
	Organizations []domain.Owner `json:"organizations"`
	Stats         domain.Stats   `json:"stats"`
	Repositories  []Entry        `json:"repositories"`
	UserOnly      Distribution   `json:"user_only"`
	OrgsOnly      Distribution   `json:"orgs_only"`
	// Width is the length of the longest displayed name.
	Width int `json:"-"`
}

// Select filters repos to those with at least threshold stars, sorts them by
// stars descending and keeps the first limit. The input is not modified.
func Select(repos []domain.Repository, threshold, limit int) []domain.Repository {
	selected := make([]domain.Repository, 0, len(repos))
	for _, repo := range repos {
		if repo.Stars >= threshold {
			selected = append(selected, repo)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Stars > selected[j].Stars
	})
	if limit < len(selected) {
		selected = selected[:max(limit, 0)]
	}
	return selected
}

// NewView prepares result for display.
func NewView(result *domain.Result, opts Options) (*View, error) {
	userOnly, err := distribution(result.Stats.ByUserOnly)
	if err != nil {
		return nil, err
	}
	orgsOnly, err := distribution(result.Stats.ByOrgsOnly)
	if err != nil {
		return nil, err
	}

	view := &View{
		User:          result.User,
		Organizations: result.Organizations,
		Stats:         result.Stats,
		Repositories:  []Entry{},
		UserOnly:      userOnly,
		OrgsOnly:      orgsOnly,
	}
	// Same-named repositories of different owners are told apart by prefixing
	// every name as soon as one organization repository is present.
	prefix := result.Stats.HasOrganizationRepos()
	for _, repo := range Select(result.Repositories, opts.StargazerThreshold, opts.RepoLimit) {
		name := repo.Name
		if prefix {
			name = repo.FullName()
		}
		view.Repositories = append(view.Repositories, Entry{Name: name, Owner: repo.Owner, Stars: repo.Stars})
		view.Width = max(view.Width, len(name))
	}
	return view, nil
}

func distribution(stars []int) (Distribution, error) {
	d := Distribution{Count: len(stars), Total: domain.Sum(stars)}
	if len(stars) == 0 {
		return d, nil
	}
	data := stats.LoadRawData(stars)
	var err error
	if d.Mean, err = stats.Mean(data); err != nil {
		return Distribution{}, fmt.Errorf("failed to compute mean: %w", err)
	}
	if d.Median, err = stats.Median(data); err != nil {
		return Distribution{}, fmt.Errorf("failed to compute median: %w", err)
	}
	highest, err := stats.Max(data)
	if err != nil {
		return Distribution{}, fmt.Errorf("failed to compute max: %w", err)
	}
	d.Max = int(highest)
	return d, nil
}

// WriteText renders the totals followed by the aligned repository list.
func (v *View) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Total: %d\n", v.Stats.Total)
	if v.Stats.HasOrganizationRepos() {
		fmt.Fprintf(&b, "Total by user only: %d\n", v.UserOnly.Total)
		fmt.Fprintf(&b, "Total by orgs only: %d\n", v.OrgsOnly.Total)
	}
	if v.UserOnly.Count > 0 {
		fmt.Fprintf(&b, "Stars per repository of %s: mean %.2f, median %.1f, max %d\n",
			v.User.Login, v.UserOnly.Mean, v.UserOnly.Median, v.UserOnly.Max)
	}
	if len(v.Repositories) > 0 {
		b.WriteString("\n")
		for _, entry := range v.Repositories {
			fmt.Fprintf(&b, "%-*s   ★  %d\n", v.Width, entry.Name, entry.Stars)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON renders the view as indented JSON.
func (v *View) WriteJSON(w io.Writer) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

// WriteTemplate executes tmpl with the view as data.
func (v *View) WriteTemplate(w io.Writer, tmpl *template.Template) error {
	if err := tmpl.Execute(w, v); err != nil {
		return fmt.Errorf("failed to render template %s: %w", tmpl.Name(), err)
	}
	return nil
}

// LoadTemplate parses the template file at path. Templates may use pad and
// repeat to align columns.
func LoadTemplate(path string) (*template.Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(template.FuncMap{
		"pad":    func(width int, s string) string { return fmt.Sprintf("%-*s", width, s) },
		"repeat": strings.Repeat,
	}).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return tmpl, nil
}
