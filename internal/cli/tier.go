package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"cuprecap/internal/domain"
	"cuprecap/internal/tier"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tierCmd)
}

var tierCmd = &cobra.Command{
	Use:   "tier RANK",
	Short: "Show the reward tier for a total-cups rank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rank, err := parseRank(args[0])
		if err != nil {
			return err
		}
		t, err := tier.Resolve(rank)
		if err != nil {
			return err
		}
		printTier(cmd.OutOrStdout(), rank, t)
		return nil
	},
}

func parseRank(s string) (int, error) {
	rank, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidRank, s)
	}
	return rank, nil
}

func printTier(w io.Writer, rank int, t domain.Tier) {
	fmt.Fprintf(w, "Rank %d -> tier %d: %s\n%s\n", rank, t.ID, t.Name, t.Detail)
}
