package payments

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-coaching/backend/internal/models"
)

type memStore struct {
	byOrder map[string]*models.Payment
}

func newMemStore() *memStore { return &memStore{byOrder: map[string]*models.Payment{}} }

func (m *memStore) Create(_ context.Context, p *models.Payment) error {
	p.ID = uuid.New()
	cp := *p
	m.byOrder[p.MerchantOrderNo] = &cp
	return nil
}

func (m *memStore) GetByMerchantOrderNo(_ context.Context, orderNo string) (*models.Payment, error) {
	p, ok := m.byOrder[orderNo]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateResult(_ context.Context, p *models.Payment) error {
	cp := *p
	m.byOrder[p.MerchantOrderNo] = &cp
	return nil
}

func (m *memStore) List(context.Context, int, int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.byOrder {
		out = append(out, *p)
	}
	return out, nil
}

type statusRecorder struct {
	calls map[uuid.UUID]string
}

func (s *statusRecorder) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status string) error {
	s.calls[id] = status
	return nil
}

type countingNotifier struct{ events []string }

func (n *countingNotifier) Notify(_ context.Context, eventType string, _ *uuid.UUID, _ interface{}) {
	n.events = append(n.events, eventType)
}

func notifyPayload(t *testing.T, g *Gateway, status, orderNo string, amt int) (string, string) {
	t.Helper()
	body, err := json.Marshal(Notification{
		Status:  status,
		Message: "done",
		Result:  TradeResult{MerchantID: "MS1234567", Amt: amt, TradeNo: "T99", MerchantOrderNo: orderNo, PaymentType: "CREDIT"},
	})
	require.NoError(t, err)
	info, err := g.encrypt(string(body))
	require.NoError(t, err)
	return info, g.sign(info)
}

func setup(t *testing.T) (*Service, *memStore, *statusRecorder, *countingNotifier, string, uuid.UUID) {
	t.Helper()
	store := newMemStore()
	owner := &statusRecorder{calls: map[uuid.UUID]string{}}
	notifier := &countingNotifier{}
	svc := NewService(store, testGateway(), notifier, nil, nil)
	svc.SetOwner(models.PaymentKindCourse, owner)

	ref := uuid.New()
	data, err := svc.StartCheckout(context.Background(), CheckoutRequest{
		Kind: models.PaymentKindCourse, ReferenceID: ref, Amount: 10000, ItemDesc: "Course full plan", Email: "a@b.co",
	})
	require.NoError(t, err)
	require.NotEmpty(t, data.TradeInfo)
	require.Len(t, store.byOrder, 1)
	var orderNo string
	for k := range store.byOrder {
		orderNo = k
	}
	return svc, store, owner, notifier, orderNo, ref
}

func TestStartCheckoutDisabled(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil, nil, nil)
	assert.False(t, svc.Enabled())
	_, err := svc.StartCheckout(context.Background(), CheckoutRequest{Kind: models.PaymentKindCourse, Amount: 100})
	assert.ErrorIs(t, err, ErrGatewayDisabled)
}

func TestHandleNotifyPaid(t *testing.T) {
	svc, store, owner, notifier, orderNo, ref := setup(t)
	assert.True(t, strings.HasPrefix(orderNo, "R"))

	info, sha := notifyPayload(t, svc.gateway, GatewaySuccess, orderNo, 10000)
	p, err := svc.HandleNotify(context.Background(), info, sha)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPaid, p.Status)
	assert.NotNil(t, p.PaidAt)
	assert.Equal(t, "T99", store.byOrder[orderNo].TradeNo)
	assert.Equal(t, models.RegistrationPaid, owner.calls[ref])
	assert.Equal(t, []string{models.NotifyPaymentUpdated}, notifier.events)

	// repeated callback for a paid order is a no-op
	p, err = svc.HandleNotify(context.Background(), info, sha)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPaid, p.Status)
	assert.Len(t, notifier.events, 1)
}

func TestHandleNotifyFailed(t *testing.T) {
	svc, _, owner, _, orderNo, ref := setup(t)
	info, sha := notifyPayload(t, svc.gateway, "MPG03008", orderNo, 10000)
	p, err := svc.HandleNotify(context.Background(), info, sha)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationFailed, p.Status)
	assert.Nil(t, p.PaidAt)
	assert.Equal(t, models.RegistrationFailed, owner.calls[ref])
}

func TestHandleNotifyAmountMismatch(t *testing.T) {
	svc, _, owner, _, orderNo, ref := setup(t)
	info, sha := notifyPayload(t, svc.gateway, GatewaySuccess, orderNo, 1)
	p, err := svc.HandleNotify(context.Background(), info, sha)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	require.NotNil(t, p)
	assert.Equal(t, models.RegistrationFailed, p.Status)
	assert.Contains(t, p.Message, "amount mismatch")
	assert.Equal(t, models.RegistrationFailed, owner.calls[ref])
}

func TestHandleNotifyRejectsBadSignature(t *testing.T) {
	svc, _, owner, _, orderNo, _ := setup(t)
	info, _ := notifyPayload(t, svc.gateway, GatewaySuccess, orderNo, 10000)
	_, err := svc.HandleNotify(context.Background(), info, "00")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, owner.calls)
}

func TestHandleNotifyUnknownOrder(t *testing.T) {
	svc, _, _, _, _, _ := setup(t)
	info, sha := notifyPayload(t, svc.gateway, GatewaySuccess, "R0000", 10000)
	_, err := svc.HandleNotify(context.Background(), info, sha)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewMerchantOrderNo(t *testing.T) {
	now := time.Unix(1760870400, 0)
	course, err := NewMerchantOrderNo(models.PaymentKindCourse, now)
	require.NoError(t, err)
	assert.Regexp(t, `^R1760870400[0-9a-f]{4}$`, course)

	event, err := NewMerchantOrderNo(models.PaymentKindEvent, now)
	require.NoError(t, err)
	assert.Regexp(t, `^E1760870400[0-9a-f]{4}$`, event)
}

// overriddenOwner is an owner whose registration an admin may already have marked paid.
type overriddenOwner struct {
	statusRecorder
	current map[uuid.UUID]string
}

func (o *overriddenOwner) PaymentStatus(_ context.Context, id uuid.UUID) (string, error) {
	return o.current[id], nil
}

func TestHandleNotifyFailureKeepsAdminPaid(t *testing.T) {
	svc, store, _, _, orderNo, ref := setup(t)
	owner := &overriddenOwner{
		statusRecorder: statusRecorder{calls: map[uuid.UUID]string{}},
		current:        map[uuid.UUID]string{ref: models.RegistrationPaid},
	}
	svc.SetOwner(models.PaymentKindCourse, owner)

	info, sha := notifyPayload(t, svc.gateway, "MPG03008", orderNo, 10000)
	p, err := svc.HandleNotify(context.Background(), info, sha)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationFailed, p.Status)
	assert.Equal(t, models.RegistrationFailed, store.byOrder[orderNo].Status)
	assert.Empty(t, owner.calls, "paid registration must not be downgraded")
}

func TestHandleNotifyFailureAppliesToPendingOwner(t *testing.T) {
	svc, _, _, _, orderNo, ref := setup(t)
	owner := &overriddenOwner{
		statusRecorder: statusRecorder{calls: map[uuid.UUID]string{}},
		current:        map[uuid.UUID]string{ref: models.RegistrationPending},
	}
	svc.SetOwner(models.PaymentKindCourse, owner)

	info, sha := notifyPayload(t, svc.gateway, "MPG03008", orderNo, 10000)
	_, err := svc.HandleNotify(context.Background(), info, sha)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationFailed, owner.calls[ref])
}

type ctxNotifier struct{ ctx context.Context }

func (n *ctxNotifier) Notify(ctx context.Context, _ string, _ *uuid.UUID, _ interface{}) { n.ctx = ctx }

func TestHandleNotifyOutlivesRequestContext(t *testing.T) {
	svc, _, _, _, orderNo, _ := setup(t)
	notifier := &ctxNotifier{}
	svc.notifier = notifier

	ctx, cancel := context.WithCancel(context.Background())
	info, sha := notifyPayload(t, svc.gateway, GatewaySuccess, orderNo, 10000)
	_, err := svc.HandleNotify(ctx, info, sha)
	require.NoError(t, err)
	cancel()
	require.NotNil(t, notifier.ctx)
	assert.NoError(t, notifier.ctx.Err())
}

func TestParseReturn(t *testing.T) {
	svc, _, owner, _, orderNo, _ := setup(t)
	info, sha := notifyPayload(t, svc.gateway, GatewaySuccess, orderNo, 10000)
	n, err := svc.ParseReturn(info, sha)
	require.NoError(t, err)
	assert.True(t, n.Succeeded())
	assert.Equal(t, orderNo, n.Result.MerchantOrderNo)
	assert.Empty(t, owner.calls)

	_, err = svc.ParseReturn(info, "00")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = NewService(newMemStore(), nil, nil, nil, nil).ParseReturn(info, sha)
	assert.ErrorIs(t, err, ErrGatewayDisabled)
}
