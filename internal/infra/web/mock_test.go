//go:build !integration

package web

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/usecase"
)

// ---- usecase stubs ----

type stubPlanUC struct {
	CreateFunc func(ctx context.Context, name string, price decimal.Decimal, description string) (*model.Plan, error)
	UpdateFunc func(ctx context.Context, id, name string, price decimal.Decimal, description string) (*model.Plan, error)
	GetFunc    func(ctx context.Context, id string) (*model.Plan, error)
	ListFunc   func(ctx context.Context) ([]*model.Plan, error)
	DeleteFunc func(ctx context.Context, id string) error
}

var _ usecase.PlanUseCase = (*stubPlanUC)(nil)

func (s *stubPlanUC) Create(ctx context.Context, name string, price decimal.Decimal, description string) (*model.Plan, error) {
	if s.CreateFunc != nil {
		return s.CreateFunc(ctx, name, price, description)
	}
	return model.NewPlan("plan-new", name, price, description)
}

func (s *stubPlanUC) Update(ctx context.Context, id, name string, price decimal.Decimal, description string) (*model.Plan, error) {
	if s.UpdateFunc != nil {
		return s.UpdateFunc(ctx, id, name, price, description)
	}
	return nil, domain.ErrNotFound
}

func (s *stubPlanUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubPlanUC) List(ctx context.Context) ([]*model.Plan, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx)
	}
	return nil, nil
}

func (s *stubPlanUC) Delete(ctx context.Context, id string) error {
	if s.DeleteFunc != nil {
		return s.DeleteFunc(ctx, id)
	}
	return nil
}

type stubSubUC struct {
	SubscribeFunc    func(ctx context.Context, userID, planID string, isRecurring bool) (*usecase.SubscribeResult, error)
	GetActiveFunc    func(ctx context.Context, userID string) (*model.Subscription, error)
	GetFunc          func(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	StartRenewalFunc func(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	CancelFunc       func(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	CheckExpiryFunc  func(ctx context.Context, subscriptionID string) (*model.Subscription, error)
	StatsFunc        func(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

var _ usecase.SubscriptionUseCase = (*stubSubUC)(nil)

func (s *stubSubUC) Subscribe(ctx context.Context, userID, planID string, isRecurring bool) (*usecase.SubscribeResult, error) {
	if s.SubscribeFunc != nil {
		return s.SubscribeFunc(ctx, userID, planID, isRecurring)
	}
	return nil, domain.ErrNotFound
}

func (s *stubSubUC) GetActive(ctx context.Context, userID string) (*model.Subscription, error) {
	if s.GetActiveFunc != nil {
		return s.GetActiveFunc(ctx, userID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubSubUC) Get(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, userID, subscriptionID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubSubUC) StartRenewal(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	if s.StartRenewalFunc != nil {
		return s.StartRenewalFunc(ctx, userID, subscriptionID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubSubUC) Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	if s.CancelFunc != nil {
		return s.CancelFunc(ctx, userID, subscriptionID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubSubUC) CheckExpiry(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	if s.CheckExpiryFunc != nil {
		return s.CheckExpiryFunc(ctx, subscriptionID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubSubUC) Stats(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	if s.StatsFunc != nil {
		return s.StatsFunc(ctx)
	}
	return map[model.SubscriptionStatus]int{}, nil
}

type stubPaymentUC struct {
	InitiateFunc       func(ctx context.Context, userID, subscriptionID string, method model.PaymentMethod) (*usecase.InitiateResult, error)
	ProcessFunc        func(ctx context.Context, paymentID string) (*model.Payment, error)
	ExecuteGatewayFunc func(ctx context.Context, gatewayID, payerID string) (*model.Payment, error)
	CancelGatewayFunc  func(ctx context.Context, gatewayID string) (*model.Payment, error)
	BulkConfirmFunc    func(ctx context.Context, paymentIDs []string) (*usecase.BulkConfirmResult, error)
	HistoryFunc        func(ctx context.Context, userID, subscriptionID string, limit int) ([]*model.Payment, error)
}

var _ usecase.PaymentUseCase = (*stubPaymentUC)(nil)

func (s *stubPaymentUC) Initiate(ctx context.Context, userID, subscriptionID string, method model.PaymentMethod) (*usecase.InitiateResult, error) {
	if s.InitiateFunc != nil {
		return s.InitiateFunc(ctx, userID, subscriptionID, method)
	}
	return nil, domain.ErrNotFound
}

func (s *stubPaymentUC) Process(ctx context.Context, paymentID string) (*model.Payment, error) {
	if s.ProcessFunc != nil {
		return s.ProcessFunc(ctx, paymentID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubPaymentUC) ExecuteGateway(ctx context.Context, gatewayID, payerID string) (*model.Payment, error) {
	if s.ExecuteGatewayFunc != nil {
		return s.ExecuteGatewayFunc(ctx, gatewayID, payerID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubPaymentUC) CancelGateway(ctx context.Context, gatewayID string) (*model.Payment, error) {
	if s.CancelGatewayFunc != nil {
		return s.CancelGatewayFunc(ctx, gatewayID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubPaymentUC) BulkConfirm(ctx context.Context, paymentIDs []string) (*usecase.BulkConfirmResult, error) {
	if s.BulkConfirmFunc != nil {
		return s.BulkConfirmFunc(ctx, paymentIDs)
	}
	return &usecase.BulkConfirmResult{Failed: map[string]string{}}, nil
}

func (s *stubPaymentUC) History(ctx context.Context, userID, subscriptionID string, limit int) ([]*model.Payment, error) {
	if s.HistoryFunc != nil {
		return s.HistoryFunc(ctx, userID, subscriptionID, limit)
	}
	return nil, nil
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
