package domain

import (
	"encoding/json"
	"time"
)

type RedemptionState int

const (
	NotRedeemed RedemptionState = iota
	Redeemed
)

func (s RedemptionState) String() string {
	if s == Redeemed {
		return "redeemed"
	}
	return "not_redeemed"
}

type RedemptionStatus struct {
	Phone      string
	State      RedemptionState
	RedeemedAt time.Time
}

func (s RedemptionStatus) MarshalJSON() ([]byte, error) {
	out := struct {
		Phone      string     `json:"phone"`
		State      string     `json:"state"`
		RedeemedAt *time.Time `json:"redeemedAt,omitempty"`
	}{Phone: s.Phone, State: s.State.String()}
	if s.IsRedeemed() && !s.RedeemedAt.IsZero() {
		at := s.RedeemedAt
		out.RedeemedAt = &at
	}
	return json.Marshal(out)
}

func (s RedemptionStatus) IsRedeemed() bool {
	return s.State == Redeemed
}

type Tier struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	ColorToken string `json:"color"`
	Detail     string `json:"detail"`
}
