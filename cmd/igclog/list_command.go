package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igclog/internal/flight"
	"igclog/internal/logbook"
	"igclog/internal/metastore"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var year int
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the aggregated logbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := metastore.New(cfg.MetaDir(), cfg.Paths.Legacy, ctx.ensureLogger())
			book, err := logbook.Build(store)
			if err != nil {
				return err
			}
			if year > 0 {
				book = book.Year(year)
			}

			flights := book.Flights
			if limit > 0 && len(flights) > limit {
				flights = flights[:limit]
			}

			out := cmd.OutOrStdout()
			if len(flights) == 0 {
				fmt.Fprintln(out, "No flights recorded")
				return nil
			}

			rows := make([][]string, 0, len(flights))
			for i, rec := range flights {
				rows = append(rows, flightRow(i+1, rec))
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Date", "Takeoff", "Landing", "Glider", "Km", "Duration", "Score", "Type"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))

			totals := book.Summarize()
			fmt.Fprintf(out, "\nFlights: %d  Distance: %.1f km  Airtime: %.1f h  Favorites: %d\n",
				totals.Flights, totals.DistanceKm, totals.DurationHours, totals.Favorites)

			for _, goal := range book.Goals(time.Now(), cfg.Goals.DistanceKm, cfg.Goals.DurationHours, cfg.Goals.Flights) {
				fmt.Fprintf(out, "Goal %s: %.1f / %.1f (%.0f%%)\n",
					goal.Name, goal.Actual, goal.Target, goal.Fraction()*100)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&year, "year", "y", 0, "Only show flights from this year")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many flights")
	return cmd
}

func flightRow(index int, rec *flight.Record) []string {
	date := ""
	if t, ok := rec.TakeoffTime(); ok {
		date = t.UTC().Format("2006-01-02 15:04")
	}
	duration := ""
	if rec.Duration != nil {
		duration = (time.Duration(*rec.Duration * float64(time.Second))).Round(time.Second).String()
	}
	score, xcType := "", ""
	if rec.XCScore != nil {
		score = fmt.Sprintf("%.1f", *rec.XCScore)
	}
	if rec.XCType != nil {
		xcType = *rec.XCType
	}
	glider := ""
	if rec.Glider != nil {
		glider = *rec.Glider
	}
	return []string{
		fmt.Sprintf("%d", index),
		date,
		rec.TakeoffLocation,
		rec.LandingLocation,
		glider,
		fmt.Sprintf("%.1f", rec.Distance/1000),
		duration,
		score,
		xcType,
	}
}
