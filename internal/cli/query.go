package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"AstroOverlap/internal/domain/models"
	xhttp "AstroOverlap/pkg/http"
)

const timeLayout = "2006-01-02 15:04:05 -07:00"

var (
	foundColor   = color.New(color.FgGreen, color.Bold)
	missingColor = color.New(color.FgYellow, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

func newQueryCmd(opts *options) *cobra.Command {
	var (
		year    int
		padding int
		targets []string
	)
	cmd := &cobra.Command{
		Use:     "query --year YEAR --target BODY:SIGN[:STEP]...",
		Short:   "Find the common interval of body/sign targets in a year",
		GroupID: "search",
		Example: `  overlap query --year 2025 --target Sun:Capricorn --target Moon:Aries
  overlap query --year 2030 -t Jupiter:Cancer -t Saturn:Pisces --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseTargets(targets)
			if err != nil {
				return err
			}
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			if padding == 0 {
				padding = s.cfg.Astro.PaddingDays
			}
			req := &models.OverlapRequest{Year: year, PaddingDays: padding, Targets: parsed}
			if err := xhttp.Validate(cmd.Context(), req); err != nil {
				return err
			}
			res, err := s.engine.ComputeOverlap(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "calendar year to search")
	cmd.Flags().IntVar(&padding, "padding", 0, "days searched before and after the year (default from config)")
	cmd.Flags().StringArrayVarP(&targets, "target", "t", nil, "BODY:SIGN or BODY:SIGN:STEP_MINUTES, repeatable")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// parseTargets reads BODY:SIGN[:STEP] pairs. Names are checked later by the engine.
func parseTargets(raw []string) ([]models.BodyTarget, error) {
	out := make([]models.BodyTarget, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(r, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("target %q: want BODY:SIGN[:STEP]", r)
		}
		t := models.BodyTarget{Body: strings.TrimSpace(parts[0]), Sign: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			step, err := strconv.Atoi(strings.TrimSpace(parts[2]))
			if err != nil || step <= 0 {
				return nil, fmt.Errorf("target %q: step must be a positive number of minutes", r)
			}
			t.StepMinutes = step
		}
		out = append(out, t)
	}
	return out, nil
}

func printResult(w io.Writer, res *models.OverlapResult) {
	printSection(w, fmt.Sprintf("Overlap %d (%s)", res.Year, res.Zone))
	switch res.Status {
	case models.StatusOverlap:
		_, _ = foundColor.Fprintf(w, "  overlap  ")
		fmt.Fprintf(w, "%s  →  %s  (%s)\n", res.Start.Format(timeLayout), res.End.Format(timeLayout),
			res.End.Sub(*res.Start).Round(time.Minute))
	case models.StatusNoOverlap:
		_, _ = missingColor.Fprintln(w, "  no common interval")
	case models.StatusInsufficientData:
		_, _ = missingColor.Fprintf(w, "  insufficient data: ")
		fmt.Fprintf(w, "%s never completes its sign inside the search window\n", res.MissingBody)
	}
	if len(res.Windows) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, bw := range res.Windows {
		_, _ = labelColor.Fprintf(w, "  %-8s %-12s", bw.Body, bw.Sign)
		fmt.Fprintf(w, "%s  →  %s ", bw.Window.Entry.Format(timeLayout), bw.Window.Exit.Format(timeLayout))
		_, _ = dimColor.Fprintf(w, "(step %dm)\n", bw.StepMinutes)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
