//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
)

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan

	SaveFunc     func(ctx context.Context, p *model.Plan) error
	FindByIDFunc func(ctx context.Context, id string) (*model.Plan, error)
	ListAllFunc  func(ctx context.Context) ([]*model.Plan, error)
	DeleteFunc   func(ctx context.Context, id string) error
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.Plan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, p *model.Plan) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) ListAll(ctx context.Context) ([]*model.Plan, error) {
	if r.ListAllFunc != nil {
		return r.ListAllFunc(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Plan, 0, len(r.data))
	for _, p := range r.data {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

func (r *MockPlanRepo) Delete(ctx context.Context, id string) error {
	if r.DeleteFunc != nil {
		return r.DeleteFunc(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription // by id

	SaveFunc              func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindByIDFunc          func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error)
	FindByUserAndPlanFunc func(ctx context.Context, tx repository.Tx, userID, planID string) (*model.Subscription, error)
	FindActiveByUserFunc  func(ctx context.Context, userID string) (*model.Subscription, error)
	CountByStatusFunc     func(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindByUserAndPlan(ctx context.Context, tx repository.Tx, userID, planID string) (*model.Subscription, error) {
	if r.FindByUserAndPlanFunc != nil {
		return r.FindByUserAndPlanFunc(ctx, tx, userID, planID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.UserID == userID && s.PlanID == planID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, userID string) (*model.Subscription, error) {
	if r.FindActiveByUserFunc != nil {
		return r.FindActiveByUserFunc(ctx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	if r.CountByStatusFunc != nil {
		return r.CountByStatusFunc(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.SubscriptionStatus]int)
	for _, s := range r.data {
		counts[s.Status]++
	}
	return counts, nil
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu    sync.Mutex
	data  map[string]*model.Payment // by id
	byRef map[string]string         // transaction reference -> id

	SaveFunc                       func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc                   func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	FindByTransactionReferenceFunc func(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error)
	UpdateStatusIfUnsettledFunc    func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}, byRef: map[string]string{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	if p.TransactionReference != nil {
		r.byRef[*p.TransactionReference] = p.ID
	}
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByTransactionReference(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error) {
	if r.FindByTransactionReferenceFunc != nil {
		return r.FindByTransactionReferenceFunc(ctx, tx, ref)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byRef[ref]; ok {
		cp := *r.data[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.SubscriptionID == subscriptionID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	return nil
}

func (r *MockPaymentRepo) SetTransactionReference(ctx context.Context, tx repository.Tx, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.TransactionReference = &ref
	r.byRef[ref] = id
	return nil
}

func (r *MockPaymentRepo) UpdateStatusIfUnsettled(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) (bool, error) {
	if r.UpdateStatusIfUnsettledFunc != nil {
		return r.UpdateStatusIfUnsettledFunc(ctx, tx, id, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending && p.Status != model.PaymentStatusAwaitingConfirmation {
		return false, nil
	}
	p.Status = status
	return true, nil
}

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu      sync.Mutex
	Created []string // gateway ids handed out
	Execs   []string // gateway ids executed

	CreatePaymentFunc  func(ctx context.Context, amount decimal.Decimal, currency, description, returnURL, cancelURL string) (*adapter.CreatedPayment, error)
	ExecutePaymentFunc func(ctx context.Context, gatewayID, payerID string) error
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mockpay" }

func (g *MockPaymentGateway) CreatePayment(ctx context.Context, amount decimal.Decimal, currency, description, returnURL, cancelURL string) (*adapter.CreatedPayment, error) {
	if g.CreatePaymentFunc != nil {
		return g.CreatePaymentFunc(ctx, amount, currency, description, returnURL, cancelURL)
	}
	id := "PAY-" + uuid.NewString()
	g.mu.Lock()
	g.Created = append(g.Created, id)
	g.mu.Unlock()
	return &adapter.CreatedPayment{GatewayID: id, ApprovalURL: "https://pay.example/approve/" + id}, nil
}

func (g *MockPaymentGateway) ExecutePayment(ctx context.Context, gatewayID, payerID string) error {
	if g.ExecutePaymentFunc != nil {
		return g.ExecutePaymentFunc(ctx, gatewayID, payerID)
	}
	g.mu.Lock()
	g.Execs = append(g.Execs, gatewayID)
	g.mu.Unlock()
	return nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs the function immediately with NoTx by default; assign WithTxFunc
// to exercise rollback paths.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTx)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLockNotAcquired
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// newTestLogger writes to io.Discard so logs never clutter test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
