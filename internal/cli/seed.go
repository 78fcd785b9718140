package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"AstroOverlap/internal/di"
	internalrepo "AstroOverlap/internal/repository"
	"AstroOverlap/internal/usecase"
	"AstroOverlap/pkg/config"
	"AstroOverlap/pkg/util"
)

func newSeedCmd(opts *options) *cobra.Command {
	var (
		from, to, bodies, source string
		interval                 time.Duration
		batch, workers           int
	)
	cmd := &cobra.Command{
		Use:     "seed --from DATE --to DATE",
		Short:   "Tabulate longitudes into the ClickHouse ephemeris table",
		GroupID: "data",
		Long: `seed samples a source ephemeris (analytic or remote) and writes the samples
to the ClickHouse table configured under ephemeris.table, so the service can run
with ephemeris.source=clickhouse.`,
		Example: `  overlap seed -c config/config.yaml --from 2019-01-01 --to 2031-01-01`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, ok := util.ParseTime(from)
			if !ok {
				return fmt.Errorf("--from %q: unrecognised time", from)
			}
			end, ok := util.ParseTime(to)
			if !ok {
				return fmt.Errorf("--to %q: unrecognised time", to)
			}
			if source != config.SourceAnalytic && source != config.SourceRemote {
				return fmt.Errorf("--source must be %s or %s", config.SourceAnalytic, config.SourceRemote)
			}
			list, err := lookupBodies(util.SplitList(bodies))
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			l, err := opts.logger()
			if err != nil {
				return err
			}
			srcCfg := *cfg
			srcCfg.Ephemeris.Source = source
			provider, err := di.ProvidePositionProvider(&srcCfg, nil, l)
			if err != nil {
				return err
			}
			ch, err := di.NewClickHouseClient(cfg)
			if err != nil {
				return err
			}
			defer ch.Close()
			store := internalrepo.NewClickHouseEphemeris(ch.DB(), cfg.Ephemeris.Table, l)

			if interval <= 0 {
				interval = cfg.Ephemeris.SampleInterval
			}
			seeder := usecase.NewEphemerisSeeder(provider, store,
				usecase.WithSampleInterval(interval),
				usecase.WithBatchSize(batch),
				usecase.WithSeederWorkers(workers),
				usecase.WithSeederLogger(l),
			)
			began := time.Now()
			report, err := seeder.Seed(cmd.Context(), list, start, end)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			w := cmd.OutOrStdout()
			printSection(w, fmt.Sprintf("Seeded %s", cfg.Ephemeris.Table))
			names := make([]string, 0, len(report.Samples))
			for n := range report.Samples {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(w, "  %-8s %8d samples\n", n, report.Samples[n])
			}
			_, _ = foundColor.Fprintf(w, "✓ %s → %s in %s\n",
				report.From.Format(time.DateOnly), report.To.Format(time.DateOnly), time.Since(began).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first instant to tabulate")
	cmd.Flags().StringVar(&to, "to", "", "last instant to tabulate")
	cmd.Flags().StringVar(&bodies, "bodies", "", "comma separated bodies; default all")
	cmd.Flags().StringVar(&source, "source", config.SourceAnalytic, "ephemeris to sample: analytic or remote")
	cmd.Flags().DurationVar(&interval, "interval", 0, "sample spacing (default ephemeris.sample_interval)")
	cmd.Flags().IntVar(&batch, "batch", 5000, "samples per insert")
	cmd.Flags().IntVar(&workers, "workers", 4, "bodies seeded concurrently")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
