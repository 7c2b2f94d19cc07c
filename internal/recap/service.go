// Package recap ties order history, report building, tier lookup and the
// redemption ledger together for the HTTP, CLI and Slack surfaces.
package recap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cuprecap/internal/domain"
	"cuprecap/internal/integrations/llm"
	"cuprecap/internal/redemption"
	"cuprecap/internal/report"
	"cuprecap/internal/tier"
)

// NotFoundMessage is the only thing shown when a phone has no customer record.
const NotFoundMessage = "No order history found for this phone number. Please check the number and try again."

// Insighter produces the coffee-personality blurb.
type Insighter interface {
	Analyze(ctx context.Context, customer domain.Customer, orders []domain.Order) llm.Insight
}

type Service struct {
	orders    domain.OrderSource
	builder   *report.Builder
	ledger    *redemption.Ledger
	insighter Insighter
}

func NewService(orders domain.OrderSource, builder *report.Builder, ledger *redemption.Ledger, insighter Insighter) *Service {
	return &Service{orders: orders, builder: builder, ledger: ledger, insighter: insighter}
}

// RedeemView is what staff see before and after a redemption.
type RedeemView struct {
	Phone  string                  `json:"phone"`
	Rank   int                     `json:"rank"`
	Tier   domain.Tier             `json:"tier"`
	Status domain.RedemptionStatus `json:"status"`
}

func (v RedeemView) Redeemed() bool {
	return v.Status.IsRedeemed()
}

// History loads the customer and their orders by exact phone match.
func (s *Service) History(phone string) (domain.Customer, []domain.Order, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domain.Customer{}, nil, domain.ErrCustomerNotFound
	}
	customer, err := s.orders.GetCustomer(phone)
	if err != nil {
		return domain.Customer{}, nil, err
	}
	orders, err := s.orders.OrdersByPhone(phone)
	if err != nil {
		return domain.Customer{}, nil, fmt.Errorf("load orders: %w", err)
	}
	return customer, orders, nil
}

func (s *Service) Report(phone string) (domain.ReportRecord, error) {
	customer, orders, err := s.History(phone)
	if err != nil {
		return domain.ReportRecord{}, err
	}
	return s.builder.Build(customer, orders)
}

func (s *Service) Insight(ctx context.Context, phone string) (llm.Insight, error) {
	customer, orders, err := s.History(phone)
	if err != nil {
		return llm.Insight{}, err
	}
	if s.insighter == nil {
		return llm.Insight{Text: llm.MissingKeyMessage, Source: "fallback"}, nil
	}
	return s.insighter.Analyze(ctx, customer, orders), nil
}

func (s *Service) ReportOptions() report.Options {
	return s.builder.Options()
}

// RedeemView resolves the tier for rank and the ledger state for phone.
func (s *Service) RedeemView(p redemption.Params) (RedeemView, error) {
	t, err := tier.Resolve(p.Rank)
	if err != nil {
		return RedeemView{}, err
	}
	status, err := s.ledger.Status(p.Phone)
	if err != nil {
		return RedeemView{}, err
	}
	return RedeemView{Phone: status.Phone, Rank: p.Rank, Tier: t, Status: status}, nil
}

// Redeem validates the rank before asking c to confirm. An already redeemed
// phone returns its view together with domain.ErrAlreadyRedeemed.
func (s *Service) Redeem(p redemption.Params, c redemption.Confirmer) (RedeemView, error) {
	view, err := s.RedeemView(p)
	if err != nil {
		return RedeemView{}, err
	}
	status, err := s.ledger.Redeem(p.Phone, c)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyRedeemed) {
			view.Status = status
			return view, err
		}
		return RedeemView{}, err
	}
	view.Status = status
	return view, nil
}
