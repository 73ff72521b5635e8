package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/silverroute/internal/analyzer"
	"github.com/rewired-gh/silverroute/internal/models"
)

var exitWords = map[string]bool{"sair": true, "exit": true, "quit": true}

// querier is the part of the analyzer the interactive loop uses.
type querier interface {
	Search(ctx context.Context, query string) analyzer.SearchReport
	AnalyzeFamilies(ctx context.Context, families []models.VariantFamily, sel analyzer.Selection) ([]analyzer.FamilyReport, error)
	ItemName(id string) string
}

// newREPLCommand creates the interactive search command
func newREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Search and analyze items interactively",
		Long: `Start an interactive session. Type an item name to search for it; when
several families match, pick one by number or type 'all'. Type 'sair',
'exit' or 'quit' to leave.`,
		Args: cobra.NoArgs,
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

			return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.svc)
		},
	}
}

// runREPL reads queries from in until an exit word, EOF or cancellation.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, q querier) error {
	scanner := bufio.NewScanner(in)
	readLine := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	fmt.Fprintln(out, "\n🔍 ITEM SEARCH FOR ARBITRAGE")
	fmt.Fprintln(out, "Type an item name (or 'sair' to quit)")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		input, ok := readLine("\n> ")
		if !ok {
			return scanner.Err()
		}
		if exitWords[strings.ToLower(input)] {
			fmt.Fprintln(out, "👋 See you!")
			return nil
		}
		if input == "" {
			continue
		}

		report := q.Search(ctx, input)
		if report.Outcome != models.OutcomeOK {
			printSearch(out, report)
			continue
		}

		var sel analyzer.Selection
		if len(report.Families) > 1 {
			printSearch(out, report)
			choice, ok := readLine(fmt.Sprintf("Choose a group (1-%d, 'all' for every group, Enter for 1): ", len(report.Families)))
			if !ok {
				return scanner.Err()
			}
			sel, ok = parseChoice(choice)
			if !ok {
				fmt.Fprintf(out, "❌ Invalid choice '%s'.\n", choice)
				continue
			}
		}

		if !sel.All {
			if chosen, err := analyzer.Select(report.Families, sel); err == nil {
				printVariants(out, chosen[0], q.ItemName)
			}
		}

		results, err := q.AnalyzeFamilies(ctx, report.Families, sel)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "❌ %v\n", err)
			continue
		}
		printQuery(out, analyzer.QueryReport{Search: report, Results: results})
	}
}

// parseChoice reads a group number or an all-groups keyword.
func parseChoice(choice string) (analyzer.Selection, bool) {
	switch strings.ToLower(choice) {
	case "":
		return analyzer.Selection{}, true
	case "all", "todos":
		return analyzer.Selection{All: true}, true
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 {
		return analyzer.Selection{}, false
	}
	return analyzer.Selection{Group: n}, true
}
