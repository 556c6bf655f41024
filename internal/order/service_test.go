package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkshitij1763/e-commerce-api/internal/auth"
)

type fakeRepo struct {
	orders map[string]*Order

	markPaidFunc  func(ctx context.Context, orderID, paymentRef string, paidAt time.Time) (bool, error)
	setStatusFunc func(ctx context.Context, orderID string, s Status) (bool, error)
}

func newFakeRepo(orders ...*Order) *fakeRepo {
	f := &fakeRepo{orders: map[string]*Order{}}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeRepo) GetByID(_ context.Context, orderID string) (*Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAll(_ context.Context) ([]Order, error) {
	var out []Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeRepo) MarkPaid(ctx context.Context, orderID, paymentRef string, paidAt time.Time) (bool, error) {
	if f.markPaidFunc != nil {
		return f.markPaidFunc(ctx, orderID, paymentRef, paidAt)
	}
	o, ok := f.orders[orderID]
	if !ok || o.IsPaid || o.Status != StatusPending {
		return false, nil
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentRef = paymentRef
	o.Status = StatusPaid
	return true, nil
}

func (f *fakeRepo) SetStatus(ctx context.Context, orderID string, s Status) (bool, error) {
	if f.setStatusFunc != nil {
		return f.setStatusFunc(ctx, orderID, s)
	}
	o, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	o.Status = s
	return true, nil
}

func pendingOrder(id, userID string) *Order {
	return &Order{
		ID:         id,
		UserID:     userID,
		Status:     StatusPending,
		TotalCents: 9998,
		Items:      []Item{{ProductID: "pA", Name: "Keyboard", PriceCents: 4999, Qty: 2}},
	}
}

var (
	owner    = auth.Principal{ID: "u1", Role: auth.RoleUser}
	admin    = auth.Principal{ID: "admin-1", Role: auth.RoleAdmin}
	stranger = auth.Principal{ID: "u2", Role: auth.RoleUser}
)

func TestRecordPaymentSuccess(t *testing.T) {
	repo := newFakeRepo(pendingOrder("o1", "u1"))
	svc := NewService(repo)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	o, err := svc.RecordPayment(context.Background(), "o1", owner, "  TXN123 ")
	require.NoError(t, err)

	assert.True(t, o.IsPaid)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, "TXN123", o.PaymentRef, "ref must be trimmed")
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, now, *o.PaidAt)
}

func TestRecordPaymentSecondAttemptAlreadyPaid(t *testing.T) {
	repo := newFakeRepo(pendingOrder("o1", "u1"))
	svc := NewService(repo)

	_, err := svc.RecordPayment(context.Background(), "o1", owner, "TXN123")
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), "o1", owner, "TXN456")
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestRecordPaymentRefTooShort(t *testing.T) {
	repo := newFakeRepo(pendingOrder("o1", "u1"))
	svc := NewService(repo)

	_, err := svc.RecordPayment(context.Background(), "o1", owner, "ab")
	require.ErrorIs(t, err, ErrInvalidPaymentRef)

	o, _ := repo.GetByID(context.Background(), "o1")
	assert.False(t, o.IsPaid, "order must be unchanged")
	assert.Equal(t, StatusPending, o.Status)
}

func TestRecordPaymentRefAllWhitespace(t *testing.T) {
	repo := newFakeRepo(pendingOrder("o1", "u1"))
	svc := NewService(repo)

	_, err := svc.RecordPayment(context.Background(), "o1", owner, "      ")
	require.ErrorIs(t, err, ErrInvalidPaymentRef)
}

func TestRecordPaymentForbiddenForStranger(t *testing.T) {
	repo := newFakeRepo(pendingOrder("o1", "u1"))
	svc := NewService(repo)

	_, err := svc.RecordPayment(context.Background(), "o1", stranger, "TXN123")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRecordPaymentAdminMayPayForOwner(t *testing.T) {
	repo := newFakeRepo(pendingOrder("o1", "u1"))
	svc := NewService(repo)

	o, err := svc.RecordPayment(context.Background(), "o1", admin, "TXN123")
	require.NoError(t, err)
	assert.True(t, o.IsPaid)
}

func TestRecordPaymentNotFound(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.RecordPayment(context.Background(), "nope", owner, "TXN123")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPaymentNonPendingOrder(t *testing.T) {
	o := pendingOrder("o1", "u1")
	o.Status = StatusShipped
	svc := NewService(newFakeRepo(o))

	_, err := svc.RecordPayment(context.Background(), "o1", owner, "TXN123")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

// The conditional update is the arbiter when a concurrent payment slips in
// between the read and the write: the service must re-read and report the
// durable state, not its stale view.
func TestRecordPaymentLosesWriteRace(t *testing.T) {
	repo := newFakeRepo(pendingOrder("o1", "u1"))
	svc := NewService(repo)

	repo.markPaidFunc = func(context.Context, string, string, time.Time) (bool, error) {
		// Someone else pays first; our guarded update affects zero rows.
		repo.orders["o1"].IsPaid = true
		repo.orders["o1"].Status = StatusPaid
		return false, nil
	}

	_, err := svc.RecordPayment(context.Background(), "o1", owner, "TXN123")
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestGetEnforcesOwnership(t *testing.T) {
	repo := newFakeRepo(pendingOrder("o1", "u1"))
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), "o1", stranger)
	require.ErrorIs(t, err, ErrForbidden)

	o, err := svc.Get(context.Background(), "o1", owner)
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	o, err = svc.Get(context.Background(), "o1", admin)
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
}

func TestUpdateStatusOverwrite(t *testing.T) {
	repo := newFakeRepo(pendingOrder("o1", "u1"))
	svc := NewService(repo)

	o, err := svc.UpdateStatus(context.Background(), "o1", "shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
}

// The admin override enforces no transition graph; rolling delivered back to
// pending is accepted.
func TestUpdateStatusAllowsBackwardTransition(t *testing.T) {
	o := pendingOrder("o1", "u1")
	o.Status = StatusDelivered
	svc := NewService(newFakeRepo(o))

	got, err := svc.UpdateStatus(context.Background(), "o1", "pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestUpdateStatusUnknownValue(t *testing.T) {
	svc := NewService(newFakeRepo(pendingOrder("o1", "u1")))

	_, err := svc.UpdateStatus(context.Background(), "o1", "teleported")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.UpdateStatus(context.Background(), "nope", "paid")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "paid", "shipped", "delivered"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}
	_, err := ParseStatus("PAID")
	require.ErrorIs(t, err, ErrUnknownStatus)
}
