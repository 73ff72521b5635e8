package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/silverroute/internal/analyzer"
	"github.com/rewired-gh/silverroute/internal/models"
)

func printSearch(w io.Writer, report analyzer.SearchReport) {
	switch report.Outcome {
	case models.OutcomeNoMatch:
		fmt.Fprintf(w, "❌ No item found for '%s'. Try again.\n", report.Term)
		return
	case models.OutcomeNoVariants:
		fmt.Fprintf(w, "❌ Items match '%s' but none has tier variants.\n", report.Term)
		return
	}

	if report.Term != report.Query {
		fmt.Fprintf(w, "🤖 Searching for: %s\n", report.Term)
	}
	fmt.Fprintf(w, "\nFound %d item families:\n", len(report.Families))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tBASE ID\tVARIANTS")
	for i, family := range report.Families {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i+1, family.BaseName, family.BaseID, len(family.Variants))
	}
	tw.Flush()
}

func printVariants(w io.Writer, family models.VariantFamily, name func(string) string) {
	fmt.Fprintf(w, "\n📊 Variants of %s:\n", family.BaseName)
	for _, id := range family.Variants {
		fmt.Fprintf(w, "  • %s: %s\n", id, name(id))
	}
}

func printOpportunities(w io.Writer, opps []models.Opportunity) {
	if len(opps) == 0 {
		fmt.Fprintln(w, "❌ No arbitrage opportunities found.")
		return
	}

	rule := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\n🎯 ARBITRAGE OPPORTUNITIES FOUND: %d\n%s\n", rule, len(opps), rule)
	for i, opp := range opps {
		fmt.Fprintf(w, "\n📦 %d. %s (%s)\n", i+1, opp.ItemName, opp.ItemID)
		fmt.Fprintf(w, "💰 Buy in: %s for %s silver\n", opp.BuyLocation.City, humanize.Comma(opp.BuyLocation.Price))
		fmt.Fprintln(w, "🎯 Best places to sell:")

		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		for j, sell := range opp.SellOpportunities {
			fmt.Fprintf(tw, "   %d.\t%s:\t%s silver\t(+%s | +%.1f%%)\n",
				j+1, sell.City, humanize.Comma(sell.Price), humanize.Comma(int64(sell.Profit)), sell.ProfitPercent)
		}
		tw.Flush()
		fmt.Fprintln(w, strings.Repeat("-", 50))
	}
}
