package redemption

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cuprecap/internal/domain"
)

// Params are the two values a redemption view is entered with.
type Params struct {
	Phone string
	Rank  int
}

// ParseParams reads ?redeem=<phone>&rank=<n>. A missing value or a rank that
// is not an integer yields domain.ErrNoRedeemParams, meaning the caller should
// fall back to the default entry view. A non-positive rank yields
// domain.ErrInvalidRank.
func ParseParams(q url.Values) (Params, error) {
	phone := strings.TrimSpace(q.Get("redeem"))
	rankStr := strings.TrimSpace(q.Get("rank"))
	if phone == "" || rankStr == "" {
		return Params{}, domain.ErrNoRedeemParams
	}
	rank, err := strconv.Atoi(rankStr)
	if err != nil {
		return Params{}, fmt.Errorf("%w: rank %q is not an integer", domain.ErrNoRedeemParams, rankStr)
	}
	if rank < 1 {
		return Params{}, fmt.Errorf("%w: got %d", domain.ErrInvalidRank, rank)
	}
	return Params{Phone: phone, Rank: rank}, nil
}

// URL builds the link a customer shows to staff to claim their reward.
func URL(base, phone string, rank int) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "redeem=" + url.QueryEscape(phone) + "&rank=" + strconv.Itoa(rank)
}
