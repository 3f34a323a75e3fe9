package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/sieve/pkg/store"
	"github.com/praetorian-inc/sieve/pkg/types"
)

var (
	historyJournal string
	historyRoute   int64
	historyLimit   int
	historyFormat  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled rule operations",
	Long:  "Read the load and clear operations recorded by 'sieve serve --journal'",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyJournal, "journal", "sieve.db", "Path to the journal database")
	historyCmd.Flags().Int64Var(&historyRoute, "route", -1, "Only show operations affecting this route")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Show at most this many of the newest entries (0 for all)")
	historyCmd.Flags().StringVar(&historyFormat, "format", "table", "Output format: table, json")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyJournal == store.MemoryPath {
		return fmt.Errorf("cannot read history from an in-memory journal")
	}
	if _, err := os.Stat(historyJournal); err != nil {
		return fmt.Errorf("journal not found: %s", historyJournal)
	}
	if historyFormat != "table" && historyFormat != "json" {
		return fmt.Errorf("unknown output format: %s", historyFormat)
	}

	filter := store.Filter{Limit: historyLimit}
	if historyRoute >= 0 {
		id, err := types.ParseRouteID(fmt.Sprint(historyRoute))
		if err != nil {
			return fmt.Errorf("invalid --route: %w", err)
		}
		filter.Route = store.RouteRef(id)
	}

	s, err := store.New(store.Config{Path: historyJournal})
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer s.Close()

	entries, err := s.Entries(filter)
	if err != nil {
		return fmt.Errorf("reading journal: %w", err)
	}

	if historyFormat == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}
	return outputHistoryTable(cmd, entries)
}

func outputHistoryTable(cmd *cobra.Command, entries []*store.Entry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Time\tOp\tRoute\tStatus\tPatterns\tSource\n")
	fmt.Fprintf(w, "----\t--\t-----\t------\t--------\t------\n")

	for _, e := range entries {
		route := "*"
		if e.Route != nil {
			route = e.Route.String()
		}
		status := types.StatusText(e.Status)
		if e.Error != "" {
			status += ": " + e.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.Time.Format(time.RFC3339), e.Op, route, status, e.Patterns, e.Source)
	}

	return nil
}
