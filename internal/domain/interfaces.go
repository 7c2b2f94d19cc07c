package domain

// RankingService supplies population-wide ranks and superlatives. Implementations
// are expected to return zero values, not errors, for a phone they have no entry for.
type RankingService interface {
	TotalCupsRank(phone string) (int, error)
	FavoriteItemRank(phone, item string) (int, error)
	ExplorationRank(phone string) (int, error)
	Titles(phone string) (Titles, error)
}

// OrderSource looks up a customer and their full order history by phone.
type OrderSource interface {
	GetCustomer(phone string) (Customer, error)
	OrdersByPhone(phone string) ([]Order, error)
}
