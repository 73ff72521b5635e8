package telegram

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/silverroute/internal/analyzer"
	"github.com/rewired-gh/silverroute/internal/models"
)

func helpMessage() string {
	lines := []string{
		"*Albion arbitrage bot*",
		"",
		escapeMarkdownV2("/search <item> - list matching item families"),
		escapeMarkdownV2("/arb <item> [group] - analyze one family (default 1)"),
		escapeMarkdownV2("/arball <item> - analyze every family"),
	}
	return strings.Join(lines, "\n") + "\n"
}

// formatSearch lists the families of a search, numbered for /arb.
func formatSearch(report analyzer.SearchReport) string {
	if report.Outcome != models.OutcomeOK {
		return outcomeMessage(report)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Results for %s*\n\n", escapeMarkdownV2(report.Term))
	for i, family := range report.Families {
		fmt.Fprintf(&b, "%d\\. %s \\(%s\\) \\- %d variants\n",
			i+1, escapeMarkdownV2(family.BaseName), escapeMarkdownV2(family.BaseID), len(family.Variants))
	}
	return b.String()
}

// formatQuery formats the opportunities of every analyzed family.
func formatQuery(out analyzer.QueryReport) string {
	if out.Search.Outcome != models.OutcomeOK {
		return outcomeMessage(out.Search)
	}

	var b strings.Builder
	for _, result := range out.Results {
		fmt.Fprintf(&b, "🔄 *%s* \\(%d variants\\)\n",
			escapeMarkdownV2(result.Family.BaseName), len(result.Family.Variants))

		opps := result.Report.Opportunities
		if len(opps) == 0 {
			b.WriteString("❌ No arbitrage opportunities found\\.\n\n")
			continue
		}
		for i, opp := range opps {
			writeOpportunity(&b, i+1, opp)
		}
		if result.Report.FetchError != "" {
			b.WriteString("⚠️ _Some prices could not be fetched_\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeOpportunity(b *strings.Builder, n int, opp models.Opportunity) {
	fmt.Fprintf(b, "📦 %d\\. %s \\(%s\\)\n", n, escapeMarkdownV2(opp.ItemName), escapeMarkdownV2(opp.ItemID))
	fmt.Fprintf(b, "💰 Buy in %s for %s silver\n",
		escapeMarkdownV2(opp.BuyLocation.City), escapeMarkdownV2(humanize.Comma(opp.BuyLocation.Price)))
	for j, sell := range opp.SellOpportunities {
		profit := fmt.Sprintf("+%s | +%.1f%%", humanize.Comma(int64(sell.Profit)), sell.ProfitPercent)
		fmt.Fprintf(b, "   %d\\. %s: *%s* silver \\(%s\\)\n",
			j+1, escapeMarkdownV2(sell.City), escapeMarkdownV2(humanize.Comma(sell.Price)), escapeMarkdownV2(profit))
	}
}

func outcomeMessage(report analyzer.SearchReport) string {
	switch report.Outcome {
	case models.OutcomeNoVariants:
		return "❌ " + escapeMarkdownV2(fmt.Sprintf("Items match '%s' but none has tier variants.", report.Term))
	default:
		return "❌ " + escapeMarkdownV2(fmt.Sprintf("No item found for '%s'.", report.Term))
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// \ _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
