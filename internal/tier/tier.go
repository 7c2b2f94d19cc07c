// Package tier maps a customer's total-cups rank to a reward tier.
package tier

import (
	"fmt"

	"cuprecap/internal/domain"
)

type bracket struct {
	maxRank int // inclusive; 0 means unbounded
	tier    domain.Tier
}

// brackets is ordered; the first bracket whose maxRank covers the rank wins.
var brackets = []bracket{
	{maxRank: 3, tier: domain.Tier{ID: 1, Name: "巅峰特等奖", ColorToken: "from-amber-500 to-yellow-600", Detail: "包含：库迪随行杯 + 钥匙扣或挂饰任选一件"}},
	{maxRank: 10, tier: domain.Tier{ID: 2, Name: "卓越优胜奖", ColorToken: "from-slate-400 to-slate-600", Detail: "包含：哪吒徽章+冰箱贴组合"}},
	{maxRank: 50, tier: domain.Tier{ID: 3, Name: "进取达人奖", ColorToken: "from-orange-400 to-orange-600", Detail: "包含：历史联名周边冰箱贴或吧唧徽章任选一件"}},
	{maxRank: 0, tier: domain.Tier{ID: 4, Name: "门店回馈奖", ColorToken: "from-blue-400 to-blue-500", Detail: "包含：历史联名贴纸任选一张"}},
}

// Resolve returns the reward tier for rank. Every positive rank maps to exactly
// one tier; ranks below 1 yield domain.ErrInvalidRank.
func Resolve(rank int) (domain.Tier, error) {
	if rank < 1 {
		return domain.Tier{}, fmt.Errorf("%w: got %d", domain.ErrInvalidRank, rank)
	}
	for _, b := range brackets {
		if b.maxRank == 0 || rank <= b.maxRank {
			return b.tier, nil
		}
	}
	return brackets[len(brackets)-1].tier, nil
}

// All returns every tier in ascending ID order.
func All() []domain.Tier {
	tiers := make([]domain.Tier, len(brackets))
	for i, b := range brackets {
		tiers[i] = b.tier
	}
	return tiers
}
