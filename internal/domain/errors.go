package domain

import "errors"

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrUnknownCategory  = errors.New("unknown menu category")

	ErrInvalidRank     = errors.New("rank must be a positive integer")
	ErrNoRedeemParams  = errors.New("redeem and rank parameters are required")
	ErrAlreadyRedeemed = errors.New("reward already redeemed on this device")
	ErrNotConfirmed    = errors.New("redemption was not confirmed")
)
