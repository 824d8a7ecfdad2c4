package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/naka-gawa/github-stars/internal/config"
	"github.com/naka-gawa/github-stars/internal/domain"
	"github.com/naka-gawa/github-stars/internal/gateway"
	"github.com/naka-gawa/github-stars/internal/logger"
	"github.com/naka-gawa/github-stars/internal/presenter"
	"github.com/naka-gawa/github-stars/internal/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// countFlags holds the parsed flags of the count command.
type countFlags struct {
	noOrgs             bool
	pageSize           int
	repoLimit          int
	stargazerThreshold int
	template           string
	output             string
	requestUsername    string
	requestPassword    string
	orgSource          string
	fixture            string
	cacheDir           string
	envFile            string
	concurrency        int
	timeout            time.Duration
	maxRateLimitWait   time.Duration
	noProgress         bool
}

var flags countFlags

var countCmd = &cobra.Command{
	Use:   "count <username>",
	Short: "Counts the stars of a user's and their organizations' repositories",
	Long: `Counts the stars of all repositories owned by the given GitHub user and the
organizations the user belongs to, then prints the totals and the most starred
repositories as text, JSON or through a Go template.`,
	Example: `  github-stars count Byron
  github-stars count Byron --no-orgs -r 20
  github-stars count Byron -o json
  github-stars count Byron --fixture testdata/byron.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return runCount(ctx, cmd, args[0], flags)
	},
}

func runCount(ctx context.Context, cmd *cobra.Command, username string, f countFlags) error {
	var envFiles []string
	if f.envFile != "" {
		envFiles = append(envFiles, f.envFile)
	}
	env, err := config.Load(envFiles...)
	if err != nil {
		return err
	}

	// Get the logging flags from the root command to set up the logger.
	verbose, _ := cmd.Flags().GetBool("verbose")
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = env.LogLevel
	}
	if verbose {
		level = "debug"
	}
	base, err := logger.New(level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log := base.WithField("run", uuid.NewString())

	opts := config.DefaultOptions()
	opts.IncludeOrganizations = !f.noOrgs
	opts.PageSize = f.pageSize
	opts.RepoLimit = f.repoLimit
	opts.StargazerThreshold = f.stargazerThreshold
	opts.Credentials = config.ResolveCredentials(
		firstNonEmpty(f.requestUsername, env.RequestUsername),
		firstNonEmpty(f.requestPassword, env.RequestPassword),
		username,
	)
	if err := opts.Validate(); err != nil {
		return err
	}
	if f.output != "text" && f.output != "json" {
		return fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidConfiguration, f.output)
	}
	if f.orgSource != "rest" && f.orgSource != "graphql" {
		return fmt.Errorf("%w: unknown organization source %q", domain.ErrInvalidConfiguration, f.orgSource)
	}

	var render func(*presenter.View, io.Writer) error
	switch {
	case f.template != "":
		tmpl, err := presenter.LoadTemplate(f.template)
		if err != nil {
			return err
		}
		render = func(v *presenter.View, w io.Writer) error { return v.WriteTemplate(w, tmpl) }
	case f.output == "json":
		render = (*presenter.View).WriteJSON
	default:
		render = (*presenter.View).WriteText
	}

	// Inject dependencies and run the main business logic.
	fetcher, paginatorOpts, err := newFetcher(f, env, opts, log)
	if err != nil {
		return err
	}
	paginatorOpts = append(paginatorOpts, usecase.WithConcurrency(f.concurrency))
	aggregator := usecase.NewAggregator(
		usecase.NewOwnerResolver(fetcher, log),
		usecase.NewPaginator(fetcher, opts.PageSize, log, paginatorOpts...),
		log,
	)

	stopProgress := startProgress(cmd.ErrOrStderr(), f.noProgress || base.GetLevel() >= logrus.InfoLevel, username)
	result, err := aggregator.Count(ctx, username, opts.IncludeOrganizations)
	stopProgress()
	if err != nil {
		return fmt.Errorf("failed to count stars: %w", err)
	}

	view, err := presenter.NewView(result, presenter.Options{
		RepoLimit:          opts.RepoLimit,
		StargazerThreshold: opts.StargazerThreshold,
	})
	if err != nil {
		return err
	}
	return render(view, cmd.OutOrStdout())
}

// newFetcher returns the fixture gateway for dry runs and the GitHub gateway otherwise.
func newFetcher(f countFlags, env config.Environment, opts config.Options, log logrus.FieldLogger) (gateway.Fetcher, []usecase.PaginatorOption, error) {
	if f.fixture != "" {
		fixture, err := gateway.LoadFixture(f.fixture, log)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("fixture", f.fixture).Info("Dry run: serving repositories from fixture")
		return fixture, []usecase.PaginatorOption{usecase.WithoutPageVerification()}, nil
	}

	settings := gateway.Settings{
		Token:            env.Token,
		BaseURL:          env.APIURL,
		CacheDir:         f.cacheDir,
		OrgSource:        f.orgSource,
		Timeout:          f.timeout,
		MaxRateLimitWait: f.maxRateLimitWait,
	}
	if opts.Credentials != nil {
		settings.Username = opts.Credentials.Username
		settings.Password = opts.Credentials.Password
	}
	githubGateway, err := gateway.NewGitHubGateway(settings, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	return githubGateway, nil, nil
}

// startProgress shows a spinner on w while stars are counted, unless
// disabled or w is not a terminal. The returned func stops it.
func startProgress(w io.Writer, disabled bool, username string) func() {
	file, ok := w.(*os.File)
	if disabled || !ok || !isatty.IsTerminal(file.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(file))
	s.Suffix = fmt.Sprintf(" Counting stars of %s...", username)
	s.Start()
	return s.Stop
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(countCmd)
	fs := countCmd.Flags()
	fs.BoolVar(&flags.noOrgs, "no-orgs", false, "Ignore the organizations the user is a member of. Faster, but less precise")
	fs.IntVarP(&flags.pageSize, "page-size", "p", config.DefaultPageSize, "The amount of repositories per page when asking for repository details")
	fs.IntVarP(&flags.repoLimit, "repo-limit", "r", config.DefaultRepoLimit, "The amount of repositories to display at most. Set it to 0 to only see the totals")
	fs.IntVarP(&flags.stargazerThreshold, "stargazer-threshold", "s", config.DefaultStargazerThreshold, "The least amount of stars a repository needs to be listed. Does not affect totals")
	fs.StringVarP(&flags.template, "template", "t", "", "Render the output with the Go template at this path")
	fs.StringVarP(&flags.output, "output", "o", "text", "Output format: text or json")
	fs.StringVarP(&flags.requestUsername, "request-username", "u", "", "User for authenticated requests ($GITHUB_REQUEST_USERNAME)")
	fs.StringVar(&flags.requestPassword, "request-password", "", "Password or token for authenticated requests ($GITHUB_REQUEST_PASSWORD). Without a username, the counted user is used")
	fs.StringVar(&flags.orgSource, "org-source", "rest", "Where organization memberships come from: rest or graphql (needs $GITHUB_TOKEN)")
	fs.StringVar(&flags.fixture, "fixture", "", "Dry run: read owners and repositories from this JSON file instead of GitHub")
	fs.StringVar(&flags.cacheDir, "cache-dir", "", "Cache HTTP responses in this directory and revalidate them on later runs")
	fs.StringVar(&flags.envFile, "env-file", "", "Load environment variables from this file instead of ./.env")
	fs.IntVar(&flags.concurrency, "concurrency", 0, "Maximum concurrent page requests per owner (0 means unlimited)")
	fs.DurationVar(&flags.timeout, "timeout", 30*time.Second, "Timeout of a single HTTP request")
	fs.DurationVar(&flags.maxRateLimitWait, "max-rate-limit-wait", 0, "Longest wait for a secondary rate limit before failing")
	fs.BoolVar(&flags.noProgress, "no-progress", false, "Do not show a progress spinner")
}
