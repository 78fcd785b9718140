// Package cli implements the overlap command line tool.
package cli

import (
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"AstroOverlap/internal/di"
	"AstroOverlap/internal/domain/repository"
	"AstroOverlap/internal/usecase"
	"AstroOverlap/pkg/config"
	applogger "AstroOverlap/pkg/logger"
	"AstroOverlap/pkg/metrics"
)

var sectionTitleColor = color.New(color.FgBlue, color.Bold)

type options struct {
	configPath string
	jsonOutput bool
	verbose    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:     "overlap",
		Version: version,
		Short:   "Find when several bodies occupy chosen sidereal signs together",
		Long: `overlap locates, for a calendar year, the first complete stay of each body
in its requested sidereal (Lahiri) sign and reports the common interval.

Without --config the built-in analytic ephemeris and UTC are used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")

	root.AddGroup(
		&cobra.Group{ID: "search", Title: "Search:"},
		&cobra.Group{ID: "catalog", Title: "Catalog:"},
		&cobra.Group{ID: "data", Title: "Ephemeris Data:"},
	)
	root.AddCommand(
		newQueryCmd(opts),
		newSignsCmd(opts),
		newBodiesCmd(opts),
		newPositionsCmd(opts),
		newSeedCmd(opts),
	)
	return root
}

// Execute runs the tool with os.Args.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.Parse(nil)
	}
	return config.LoadWithEnv(o.configPath)
}

func (o *options) logger() (*applogger.Logger, error) {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stderr"})
}

// session holds the engine and whatever must be closed after a command.
type session struct {
	cfg    *config.Config
	l      *applogger.Logger
	store  repository.EphemerisStore
	engine *usecase.OverlapEngine
	close  func()
}

func (o *options) open() (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	l, err := o.logger()
	if err != nil {
		return nil, err
	}
	astro, err := di.ProvideAstroConfig(cfg)
	if err != nil {
		return nil, err
	}
	ch, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	store := di.ProvideEphemerisStore(ch, cfg, l)
	provider, err := di.ProvidePositionProvider(cfg, store, l)
	if err != nil {
		if ch != nil {
			_ = ch.Close()
		}
		return nil, err
	}
	s := &session{
		cfg:    cfg,
		l:      l,
		store:  store,
		engine: di.ProvideOverlapEngine(provider, astro, metrics.Nop{}, l, cfg),
		close:  func() {},
	}
	if ch != nil {
		s.close = func() { _ = ch.Close() }
	}
	return s, nil
}

func printSection(w io.Writer, title string) {
	_, _ = sectionTitleColor.Fprintf(w, "%s\n", title)
}
