package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"AstroOverlap/internal/domain/models"
	"AstroOverlap/pkg/util"
)

func newSignsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "signs",
		Short:   "List the twelve sidereal signs",
		GroupID: "catalog",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			type sign struct {
				Index       int     `json:"index"`
				Name        string  `json:"name"`
				StartDegree float64 `json:"start_degree"`
			}
			out := make([]sign, 0, models.SignCount)
			for i, name := range models.SignNames() {
				out = append(out, sign{Index: i, Name: name, StartDegree: models.Sign(i).StartDegree()})
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			printSection(w, "Signs")
			for _, s := range out {
				fmt.Fprintf(w, "  %2d  %-12s %6.1f°\n", s.Index, s.Name, s.StartDegree)
			}
			return nil
		},
	}
}

func newBodiesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "bodies",
		Short:   "List supported bodies and their default sampling step",
		GroupID: "catalog",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			type body struct {
				models.Body
				StepMinutes int `json:"step_minutes"`
			}
			var out []body
			for _, b := range models.KnownBodies() {
				out = append(out, body{Body: b, StepMinutes: s.engine.StepFor(b)})
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			printSection(w, "Bodies")
			for _, b := range out {
				fmt.Fprintf(w, "  %-8s code %-3d %6.2f°/day  ", b.Name, b.Code, b.MaxSpeed)
				_, _ = dimColor.Fprintf(w, "step %dm\n", b.StepMinutes)
			}
			return nil
		},
	}
}

type position struct {
	Body      string    `json:"body"`
	Instant   time.Time `json:"instant"`
	Longitude float64   `json:"longitude"`
	Sign      string    `json:"sign"`
	Degree    float64   `json:"degree"`
}

func newPositionsCmd(opts *options) *cobra.Command {
	var at, bodies string
	cmd := &cobra.Command{
		Use:     "positions",
		Short:   "Print sidereal longitudes at an instant",
		GroupID: "catalog",
		Example: `  overlap positions --at 2025-03-01T12:00:00Z --bodies Sun,Moon`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := time.Now().UTC()
			if at != "" {
				var ok bool
				if t, ok = util.ParseTime(at); !ok {
					return fmt.Errorf("--at %q: unrecognised time", at)
				}
			}
			list, err := lookupBodies(util.SplitList(bodies))
			if err != nil {
				return err
			}
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			out, err := positions(cmd.Context(), s, t, list)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printPositions(cmd.OutOrStdout(), t, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant (RFC3339, date or unix seconds); default now")
	cmd.Flags().StringVar(&bodies, "bodies", "", "comma separated bodies; default all")
	return cmd
}

func lookupBodies(names []string) ([]models.Body, error) {
	if len(names) == 0 {
		return models.KnownBodies(), nil
	}
	out := make([]models.Body, 0, len(names))
	for _, n := range names {
		b, err := models.LookupBody(n)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func positions(ctx context.Context, s *session, t time.Time, bodies []models.Body) ([]position, error) {
	provider := s.engine.Provider()
	out := make([]position, 0, len(bodies))
	for _, b := range bodies {
		lon, err := provider.Longitude(ctx, t, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name, err)
		}
		sign := models.SignOf(lon)
		out = append(out, position{
			Body:      b.Name,
			Instant:   t,
			Longitude: lon,
			Sign:      sign.String(),
			Degree:    lon - sign.StartDegree(),
		})
	}
	return out, nil
}

func printPositions(w io.Writer, t time.Time, ps []position) {
	printSection(w, "Positions at "+t.Format(time.RFC3339))
	for _, p := range ps {
		_, _ = labelColor.Fprintf(w, "  %-8s", p.Body)
		fmt.Fprintf(w, " %8.4f°  %-12s %7.4f°\n", p.Longitude, p.Sign, p.Degree)
	}
}
