package slackbot

import (
	"fmt"
	"strings"
	"time"

	"cuprecap/internal/domain"
	"cuprecap/internal/recap"
	"cuprecap/internal/redemption"

	"github.com/slack-go/slack"
)

func formatRedeemSummary(view recap.RedeemView, loc *time.Location) string {
	status := "Not redeemed yet"
	if view.Redeemed() {
		status = "Already redeemed at " + formatTimestamp(view.Status.RedeemedAt, loc)
	}
	return fmt.Sprintf("%s · rank %d · %s\n%s\n%s", domain.MaskPhone(view.Phone), view.Rank, view.Tier.Name, view.Tier.Detail, status)
}

func buildRedeemBlocks(view recap.RedeemView, loc *time.Location) []slack.Block {
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*%s*\n%s\nCustomer %s · rank %d", view.Tier.Name, view.Tier.Detail, domain.MaskPhone(view.Phone), view.Rank),
				false, false),
			nil, nil,
		),
	}
	if view.Redeemed() {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, ":white_check_mark: Already redeemed at "+formatTimestamp(view.Status.RedeemedAt, loc), false, false),
		))
		return blocks
	}
	btn := slack.NewButtonBlockElement(actionRedeemOpen, encodeRedeemValue(redemption.Params{Phone: view.Phone, Rank: view.Rank}),
		slack.NewTextBlockObject(slack.PlainTextType, "Redeem", false, false))
	btn.Style = slack.StylePrimary
	blocks = append(blocks, slack.NewActionBlock("redeem_actions", btn))
	return blocks
}

func formatRedemptionNotice(view recap.RedeemView, userID, device string, loc *time.Location) string {
	return fmt.Sprintf(":coffee: <@%s> redeemed *%s* (tier %d) for %s at %s on %s.",
		userID, view.Tier.Name, view.Tier.ID, domain.MaskPhone(view.Phone),
		formatTimestamp(view.Status.RedeemedAt, loc), device)
}

func formatRecap(rec domain.ReportRecord, monthLabels []string) string {
	var b strings.Builder
	name := rec.Name
	if name == "" {
		name = domain.MaskPhone(rec.PhoneNumber)
	}
	fmt.Fprintf(&b, "*%s* · year in review\n", name)
	if rec.TotalCups == 0 {
		b.WriteString("No cups in this history yet.")
		return b.String()
	}
	fmt.Fprintf(&b, "• Total cups: %d", rec.TotalCups)
	if rec.TotalCupsRank > 0 {
		fmt.Fprintf(&b, " (rank #%d)", rec.TotalCupsRank)
	}
	if rec.TotalCupsTitle != "" {
		fmt.Fprintf(&b, " · %s", rec.TotalCupsTitle)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "• Favorite: %s × %d (%s)\n", rec.FavoriteItem, rec.FavoriteItemCount, rec.PreferenceDepth)
	fmt.Fprintf(&b, "• First order: %s on %s\n", rec.FirstOrderItem, rec.FirstOrderDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "• Explored: %s", rec.ExplorationProgress)
	if rec.ExplorationTitle != "" {
		fmt.Fprintf(&b, " · %s", rec.ExplorationTitle)
	}
	b.WriteString("\n")

	var cats []string
	for _, c := range domain.Categories {
		if n := rec.CategoryCounts.Get(c); n > 0 {
			cats = append(cats, fmt.Sprintf("%s %d", c.Label(), n))
		}
	}
	if len(cats) > 0 {
		fmt.Fprintf(&b, "• Categories: %s\n", strings.Join(cats, ", "))
	}

	if peak, idx := peakMonth(rec.MonthlyCounts); peak > 0 && idx < len(monthLabels) {
		fmt.Fprintf(&b, "• Busiest month: %s (%d cups)\n", monthLabels[idx], peak)
	}
	fmt.Fprintf(&b, "• Spent: %s", rec.Spending.Total.StringFixed(2))
	return b.String()
}

func peakMonth(counts []int) (int, int) {
	peak, idx := 0, 0
	for i, n := range counts {
		if n > peak {
			peak, idx = n, i
		}
	}
	return peak, idx
}
