package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/silverroute/internal/analyzer"
	"github.com/rewired-gh/silverroute/internal/arbitrage"
	"github.com/rewired-gh/silverroute/internal/models"
)

// newSearchCommand creates the search command
func newSearchCommand() *cobra.Command {
	var (
		asJSON   bool
		variants bool
	)

	cmd := &cobra.Command{
		Use:   "search <item name>",
		Short: "List the variant families matching an item name",
		Long: `Search the item catalog by name or description, ignoring case and accents.
Every match is grouped into its tier/enchantment family.

Examples:
  silverroute search bolsa
  silverroute search "espada larga" --variants
  silverroute search "espada larga" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.svc.Search(cmd.Context(), strings.Join(args, " "))
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printSearch(cmd.OutOrStdout(), report)
			if variants {
				for _, family := range report.Families {
					printVariants(cmd.OutOrStdout(), family, a.svc.ItemName)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&variants, "variants", false, "List every variant of each family")
	return cmd
}

// newAnalyzeCommand creates the analyze command
func newAnalyzeCommand() *cobra.Command {
	var (
		group  int
		all    bool
		mode   string
		ids    []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [item name]",
		Short: "Find arbitrage opportunities for an item",
		Long: `Search for an item, fetch current quotes for every variant of the chosen
family and print the profitable buy/sell city pairs.

Without --group the first family is analyzed. --ids skips the search and
analyzes the given item IDs directly.

Examples:
  silverroute analyze bolsa
  silverroute analyze "espada larga" --group 2
  silverroute analyze capa --all --mode best_single
  silverroute analyze --ids T4_BAG,T4_BAG@1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(ids) == 0 {
				return fmt.Errorf("an item name or --ids is required")
			}

			var m arbitrage.Mode
			if mode != "" {
				parsed, err := arbitrage.ParseMode(mode)
				if err != nil {
					return err
				}
				m = parsed
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(ids) > 0 {
				if m == "" {
					m = a.mode
				}
				report, err := a.svc.AnalyzeWithMode(ctx, m, ids)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, report)
				}
				printOpportunities(out, report.Opportunities)
				return nil
			}

			result, err := a.svc.Query(ctx, strings.Join(args, " "), analyzer.Selection{Group: group, All: all, Mode: m})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, result)
			}
			printQuery(out, result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&group, "group", "g", 0, "Family number from the search results (default 1)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Analyze every matching family")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Arbitrage mode: top_sells or best_single (default from config)")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Analyze these item IDs instead of searching")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printQuery(w io.Writer, result analyzer.QueryReport) {
	if result.Search.Outcome != models.OutcomeOK {
		printSearch(w, result.Search)
		return
	}
	for _, fr := range result.Results {
		fmt.Fprintf(w, "\n🔄 Analyzing %d variants of '%s'...\n", len(fr.Family.Variants), fr.Family.BaseName)
		printOpportunities(w, fr.Report.Opportunities)
		if fr.Report.FetchError != "" {
			fmt.Fprintf(w, "⚠️  Some prices could not be fetched: %s\n", fr.Report.FetchError)
		}
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
