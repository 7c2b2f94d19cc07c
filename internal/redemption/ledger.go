// Package redemption records, once per phone number, that a reward was handed out.
//
// The ledger only knows what its Store knows. With the default SQLite store that
// is a single device: two staff devices redeeming the same phone independently
// will both succeed. This is a known limitation and is left unsynchronized.
package redemption

import (
	"fmt"
	"log"
	"strings"
	"time"

	"cuprecap/internal/domain"
)

// ConfirmPrompt is shown to staff before an irreversible redemption.
const ConfirmPrompt = "确定要核销该奖品吗？核销后不可撤回。"

const keyPrefix = "redeemed_"

// Store is the device-local key/value area backing the ledger.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	// SetIfAbsent writes value only when key has no value yet and reports
	// whether it wrote.
	SetIfAbsent(key, value string) (bool, error)
}

// Confirmer asks the operator to approve a redemption.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

type ConfirmFunc func(prompt string) (bool, error)

func (f ConfirmFunc) Confirm(prompt string) (bool, error) { return f(prompt) }

// Key returns the store key for phone.
func Key(phone string) string {
	return keyPrefix + phone
}

// PhoneFromKey reverses Key.
func PhoneFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, keyPrefix), true
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Status reports whether phone has been redeemed on this device.
func (l *Ledger) Status(phone string) (domain.RedemptionStatus, error) {
	phone = strings.TrimSpace(phone)
	status := domain.RedemptionStatus{Phone: phone, State: domain.NotRedeemed}
	if phone == "" {
		return status, fmt.Errorf("%w: phone is empty", domain.ErrNoRedeemParams)
	}
	raw, ok, err := l.store.Get(Key(phone))
	if err != nil {
		return status, fmt.Errorf("read redemption %s: %w", domain.MaskPhone(phone), err)
	}
	if !ok {
		return status, nil
	}
	status.State = domain.Redeemed
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// A record exists, so the reward is gone even if the timestamp is unreadable.
		log.Printf("redemption timestamp unreadable phone=%s value=%q: %v", domain.MaskPhone(phone), raw, err)
		return status, nil
	}
	status.RedeemedAt = ts
	return status, nil
}

// Redeem moves phone from NotRedeemed to Redeemed after c approves. An already
// redeemed phone returns its existing status with domain.ErrAlreadyRedeemed
// and the stored timestamp is never rewritten.
func (l *Ledger) Redeem(phone string, c Confirmer) (domain.RedemptionStatus, error) {
	status, err := l.Status(phone)
	if err != nil {
		return status, err
	}
	if status.IsRedeemed() {
		log.Printf("redemption rejected phone=%s already redeemed at %s", domain.MaskPhone(status.Phone), status.RedeemedAt.Format(time.RFC3339))
		return status, domain.ErrAlreadyRedeemed
	}
	if c == nil {
		return status, domain.ErrNotConfirmed
	}
	ok, err := c.Confirm(ConfirmPrompt)
	if err != nil {
		return status, fmt.Errorf("confirm redemption: %w", err)
	}
	if !ok {
		log.Printf("redemption declined phone=%s", domain.MaskPhone(status.Phone))
		return status, domain.ErrNotConfirmed
	}

	now := l.now().UTC()
	written, err := l.store.SetIfAbsent(Key(status.Phone), now.Format(time.RFC3339Nano))
	if err != nil {
		return status, fmt.Errorf("write redemption %s: %w", domain.MaskPhone(status.Phone), err)
	}
	if !written {
		// Someone else redeemed while the operator was confirming.
		existing, err := l.Status(status.Phone)
		if err != nil {
			return status, err
		}
		log.Printf("redemption rejected phone=%s redeemed concurrently at %s", domain.MaskPhone(existing.Phone), existing.RedeemedAt.Format(time.RFC3339))
		return existing, domain.ErrAlreadyRedeemed
	}
	status.State = domain.Redeemed
	status.RedeemedAt = now
	log.Printf("redemption recorded phone=%s at=%s", domain.MaskPhone(status.Phone), now.Format(time.RFC3339))
	return status, nil
}
