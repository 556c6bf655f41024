package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mkshitij1763/e-commerce-api/internal/auth"
)

// Repository is what the lifecycle service needs from the order store.
// *Repo is the Postgres implementation.
type Repository interface {
	GetByID(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	MarkPaid(ctx context.Context, orderID, paymentRef string, paidAt time.Time) (bool, error)
	SetStatus(ctx context.Context, orderID string, s Status) (bool, error)
}

// Service applies post-creation transitions to existing orders.
type Service struct {
	Repo Repository
	Now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{Repo: repo, Now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the order if the caller owns it or is an admin.
func (s *Service) Get(ctx context.Context, orderID string, caller auth.Principal) (*Order, error) {
	o, err := s.Repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	if o.UserID != caller.ID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.Repo.ListAll(ctx)
}

// RecordPayment moves a pending order to paid. Permitted for the owner or an
// admin; paying twice fails, as does paying an order that already moved on.
func (s *Service) RecordPayment(ctx context.Context, orderID string, caller auth.Principal, paymentRef string) (*Order, error) {
	ref := strings.TrimSpace(paymentRef)
	if len(ref) < 4 {
		return nil, ErrInvalidPaymentRef
	}

	o, err := s.Repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	if o.UserID != caller.ID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if o.IsPaid {
		return nil, ErrAlreadyPaid
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("%w (status %s)", ErrInvalidTransition, o.Status)
	}

	ok, err := s.Repo.MarkPaid(ctx, orderID, ref, s.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race: the guarded update saw a different durable state than
		// our read above. Re-read to report the precise reason.
		cur, err := s.Repo.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, ErrNotFound
		}
		if cur.IsPaid {
			return nil, ErrAlreadyPaid
		}
		return nil, fmt.Errorf("%w (status %s)", ErrInvalidTransition, cur.Status)
	}

	return s.Repo.GetByID(ctx, orderID)
}

// UpdateStatus overwrites the order status. The value must be a known status
// but no forward-only transition graph is enforced; this is the admin
// override the ops team uses to fix stuck orders.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status string) (*Order, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	ok, err := s.Repo.SetStatus(ctx, orderID, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.Repo.GetByID(ctx, orderID)
}
