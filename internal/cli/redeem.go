package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cuprecap/internal/app"
	"cuprecap/internal/config"
	"cuprecap/internal/domain"
	"cuprecap/internal/recap"
	"cuprecap/internal/redemption"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(redeemCmd)
}

var redeemCmd = &cobra.Command{
	Use:   "redeem PHONE RANK",
	Short: "Redeem a customer's reward on this device",
	Long: `Show the reward tier for RANK and, after an interactive y/N confirmation,
record that PHONE has redeemed it. A redemption cannot be undone.

Redemptions are stored in this device's database only.`,
	Args: cobra.ExactArgs(2),
	RunE: runRedeem,
}

func runRedeem(cmd *cobra.Command, args []string) error {
	rank, err := parseRank(args[1])
	if err != nil {
		return err
	}
	cfg := config.LoadConfig()
	db, svc, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return redeemInteractive(svc, redemption.Params{Phone: args[0], Rank: rank}, cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Location)
}

func redeemInteractive(svc *recap.Service, p redemption.Params, in io.Reader, out io.Writer, loc *time.Location) error {
	view, err := svc.RedeemView(p)
	if err != nil {
		return err
	}
	printTier(out, view.Rank, view.Tier)
	fmt.Fprintf(out, "Customer: %s\n", domain.MaskPhone(view.Phone))

	view, err = svc.Redeem(p, stdinConfirmer(in, out))
	switch {
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		fmt.Fprintf(out, "Already redeemed at %s.\n", formatLocal(view.Status.RedeemedAt, loc))
		return nil
	case errors.Is(err, domain.ErrNotConfirmed):
		fmt.Fprintln(out, "Cancelled. Nothing was recorded.")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(out, "Redeemed at %s.\n", formatLocal(view.Status.RedeemedAt, loc))
	return nil
}

// stdinConfirmer asks prompt on out and accepts only y or yes.
func stdinConfirmer(in io.Reader, out io.Writer) redemption.Confirmer {
	return redemption.ConfirmFunc(func(prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}

func formatLocal(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "an unknown time"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}
