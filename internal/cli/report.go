package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"cuprecap/internal/app"
	"cuprecap/internal/config"
	"cuprecap/internal/domain"
	"cuprecap/internal/recap"
	"cuprecap/internal/redemption"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("json", false, "Print the full report record as JSON")
	reportCmd.Flags().Bool("insight", false, "Also ask the configured LLM for a coffee-personality blurb")
	reportCmd.Flags().Bool("orders", false, "Also list the customer's order history, newest first")
}

var reportCmd = &cobra.Command{
	Use:   "report PHONE",
	Short: "Print a customer's year in review",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	withInsight, _ := cmd.Flags().GetBool("insight")
	withOrders, _ := cmd.Flags().GetBool("orders")

	cfg := config.LoadConfig()
	db, svc, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := svc.Report(args[0])
	if errors.Is(err, domain.ErrCustomerNotFound) {
		return errors.New(recap.NotFoundMessage)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	printReport(out, rec, svc.ReportOptions().MonthLabels())
	if cfg.RedeemBaseURL != "" && rec.TotalCupsRank > 0 {
		fmt.Fprintf(out, "\nRedeem link: %s\n", redemption.URL(cfg.RedeemBaseURL, rec.PhoneNumber, rec.TotalCupsRank))
	}
	if withOrders {
		lines, err := svc.Orders(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		printOrders(out, lines)
	}
	if withInsight {
		insight, err := svc.Insight(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n", insight.Text)
	}
	return nil
}

func printReport(w io.Writer, rec domain.ReportRecord, monthLabels []string) {
	name := rec.Name
	if name == "" {
		name = rec.PhoneNumber
	}
	fmt.Fprintf(w, "%s (%s)\n", name, domain.MaskPhone(rec.PhoneNumber))
	fmt.Fprintln(w, strings.Repeat("-", 40))
	if rec.TotalCups == 0 {
		fmt.Fprintln(w, "No cups in this history yet.")
		return
	}
	fmt.Fprintf(w, "First order:     %s  %s\n", rec.FirstOrderDate.Format("2006-01-02"), rec.FirstOrderItem)
	fmt.Fprintf(w, "Favorite:        %s x%d (%s)", rec.FavoriteItem, rec.FavoriteItemCount, rec.PreferenceDepth)
	if rec.FavoriteItemRank > 0 {
		fmt.Fprintf(w, "  rank #%d", rec.FavoriteItemRank)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total cups:      %d", rec.TotalCups)
	if rec.TotalCupsRank > 0 {
		fmt.Fprintf(w, "  rank #%d", rec.TotalCupsRank)
		if rec.TopUserCount > 0 {
			fmt.Fprintf(w, " of %d", rec.TopUserCount)
		}
	}
	if rec.TotalCupsTitle != "" {
		fmt.Fprintf(w, "  %s", rec.TotalCupsTitle)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Explored:        %s", rec.ExplorationProgress)
	if rec.ExplorationRank > 0 {
		fmt.Fprintf(w, "  rank #%d", rec.ExplorationRank)
	}
	if rec.ExplorationTitle != "" {
		fmt.Fprintf(w, "  %s", rec.ExplorationTitle)
	}
	fmt.Fprintln(w)
	for _, raw := range rec.ItemTitles {
		if t, ok := domain.DecodeItemTitle(raw); ok {
			fmt.Fprintf(w, "Title:           %s (%d)\n", t.Title, t.Count)
		}
	}
	fmt.Fprintf(w, "Spent:           %s\n", rec.Spending.Total.StringFixed(2))

	fmt.Fprintln(w, "\nBy category:")
	for _, c := range domain.Categories {
		fmt.Fprintf(w, "  %-12s %3d  %s\n", c.Label(), rec.CategoryCounts.Get(c), rec.Spending.ByCategory[c].StringFixed(2))
	}
	fmt.Fprintln(w, "\nBy month:")
	for i, n := range rec.MonthlyCounts {
		label := fmt.Sprintf("#%d", i+1)
		if i < len(monthLabels) {
			label = monthLabels[i]
		}
		fmt.Fprintf(w, "  %s %3d %s\n", label, n, strings.Repeat("▇", n))
	}
}

func printOrders(w io.Writer, lines []recap.OrderLine) {
	fmt.Fprintf(w, "Order history (%d orders)\n", len(lines))
	if len(lines) == 0 {
		fmt.Fprintln(w, recap.NoOrdersMessage)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tITEMS\tAMOUNT\tSTATUS")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.Date.Format("2006-01-02 15:04"), l.Items(), l.Amount.StringFixed(2), l.Status)
	}
	tw.Flush()
}
