package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeOrderRepo mirrors the compare-and-set semantics of the GORM repository
// under a mutex.
type fakeOrderRepo struct {
	mu     sync.Mutex
	clock  *fakeClock
	orders map[string]*domain.Order

	createErr     error
	claimErr      error
	transitionErr error
	// failTransitionTo fails only transitions into the given status
	failTransitionTo map[domain.OrderStatus]error

	transitions int
	claims      int
}

func newFakeOrderRepo(clock *fakeClock) *fakeOrderRepo {
	return &fakeOrderRepo{clock: clock, orders: map[string]*domain.Order{}}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	return &c
}

func (r *fakeOrderRepo) put(o *domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.OrderRef] = cloneOrder(o)
}

func (r *fakeOrderRepo) get(ref string) *domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[ref]
	if !ok {
		return nil
	}
	return cloneOrder(o)
}

func (r *fakeOrderRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.orders[order.OrderRef]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderRef, order.OrderRef)
	}
	r.orders[order.OrderRef] = cloneOrder(order)
	return nil
}

func (r *fakeOrderRepo) GetOrderByRef(_ context.Context, ref string) (*domain.Order, error) {
	if o := r.get(ref); o != nil {
		return o, nil
	}
	return nil, domain.ErrOrderNotFound
}

func (r *fakeOrderRepo) GetLatestOrderByUserID(_ context.Context, userID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open, latest *domain.Order
	for _, o := range r.orders {
		if o.UserID != userID {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
		if o.Status == domain.StatusPending || o.Status == domain.StatusProcessing {
			if open == nil || o.CreatedAt.After(open.CreatedAt) {
				open = o
			}
		}
	}
	if open != nil {
		return cloneOrder(open), nil
	}
	if latest != nil {
		return cloneOrder(latest), nil
	}
	return nil, domain.ErrOrderNotFound
}

func (r *fakeOrderRepo) filter(limit int, keep func(*domain.Order) bool) []*domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	// oldest first, stable for assertions
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *fakeOrderRepo) FindExpiredPending(_ context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	return r.filter(limit, func(o *domain.Order) bool {
		return o.Status == domain.StatusPending && o.ExpireAt.Before(now)
	}), nil
}

func (r *fakeOrderRepo) FindStaleClaims(_ context.Context, claimedBefore time.Time, limit int) ([]*domain.Order, error) {
	return r.filter(limit, func(o *domain.Order) bool {
		return o.Status == domain.StatusProcessing && o.ClaimedAt != nil && o.ClaimedAt.Before(claimedBefore)
	}), nil
}

func (r *fakeOrderRepo) FindApplicationSyncBacklog(_ context.Context, changedBefore time.Time, limit int) ([]*domain.Order, error) {
	return r.filter(limit, func(o *domain.Order) bool {
		if !o.UpdatedAt.Before(changedBefore) {
			return false
		}
		switch o.Status {
		case domain.StatusPaid, domain.StatusPartialRefunded:
			return o.ApplicationSynced == ""
		case domain.StatusRefunded:
			return o.ApplicationSynced != domain.StatusRefunded
		}
		return false
	}), nil
}

func (r *fakeOrderRepo) ClaimForProcessing(_ context.Context, ref, token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return false, r.claimErr
	}
	o, ok := r.orders[ref]
	if !ok || o.Status != domain.StatusPending {
		return false, nil
	}
	r.claims++
	o.Status = domain.StatusProcessing
	o.ClaimToken = token
	claimedAt := now
	o.ClaimedAt = &claimedAt
	o.UpdatedAt = now
	return true, nil
}

func (r *fakeOrderRepo) ApplyTransition(ctx context.Context, ref string, tr domain.Transition) (bool, error) {
	if !domain.CanTransition(tr.From, tr.To) {
		return false, domain.ErrIllegalTransition
	}
	if tr.From == domain.StatusProcessing && tr.ClaimToken == "" {
		return false, domain.ErrIllegalTransition
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transitionErr != nil {
		return false, r.transitionErr
	}
	if err := r.failTransitionTo[tr.To]; err != nil {
		return false, err
	}
	o, ok := r.orders[ref]
	if !ok || o.Status != tr.From {
		return false, nil
	}
	if tr.ClaimToken != "" && o.ClaimToken != tr.ClaimToken {
		return false, nil
	}
	if tr.RefundRef != "" && o.RefundRef != tr.RefundRef {
		return false, nil
	}

	r.transitions++
	o.Status = tr.To
	o.UpdatedAt = r.clock.Now()
	if tr.From == domain.StatusProcessing {
		o.ClaimToken = ""
		o.ClaimedAt = nil
	}
	p := tr.Patch
	if p.GatewayTransactionID != nil {
		o.GatewayTransactionID = *p.GatewayTransactionID
	}
	if p.PaidAt != nil {
		o.PaidAt = p.PaidAt
	}
	if p.ClosedAt != nil {
		o.ClosedAt = p.ClosedAt
	}
	if p.RefundedAt != nil {
		o.RefundedAt = p.RefundedAt
	}
	if p.RefundAmount != nil {
		o.RefundAmount = p.RefundAmount
	}
	if p.RefundReason != nil {
		o.RefundReason = *p.RefundReason
	}
	if p.RefundOperatorID != nil {
		o.RefundOperatorID = *p.RefundOperatorID
	}
	if p.LastError != nil {
		o.LastError = *p.LastError
	}
	if len(p.RawNotification) > 0 {
		o.RawNotification = p.RawNotification
	}
	return true, nil
}

func (r *fakeOrderRepo) ReserveRefund(_ context.Context, ref, refundRef string, amount decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[ref]
	if !ok || o.Status != domain.StatusPaid || o.RefundRef != "" {
		return false, nil
	}
	o.RefundRef = refundRef
	o.RefundAmount = &amount
	return true, nil
}

func (r *fakeOrderRepo) ReleaseRefund(_ context.Context, ref, refundRef, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[ref]
	if ok && o.Status == domain.StatusPaid && o.RefundRef == refundRef {
		o.RefundRef = ""
		o.RefundAmount = nil
		if lastError != "" {
			o.LastError = lastError
		}
	}
	return nil
}

func (r *fakeOrderRepo) MarkApplicationSynced(_ context.Context, ref string, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[ref]; ok {
		o.ApplicationSynced = status
	}
	return nil
}

func (r *fakeOrderRepo) RecordError(_ context.Context, ref, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[ref]; ok {
		o.LastError = msg
	}
	return nil
}

type fakeGateway struct {
	mu sync.Mutex

	createErr error
	trades    map[string]*domain.TradeQueryResult
	queryErr  map[string]error
	// queryDelay widens race windows in concurrency tests
	queryDelay time.Duration
	// onQuery runs after the query is recorded, outside the lock
	onQuery  func(ref string)
	closeErr error

	refundResult *domain.RefundResult
	refundErr    error

	callbacks map[string]*domain.CallbackFields

	intents []domain.PaymentIntent
	queries map[string]int
	closes  map[string]int
	refunds []domain.RefundRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		trades:    map[string]*domain.TradeQueryResult{},
		queryErr:  map[string]error{},
		callbacks: map[string]*domain.CallbackFields{},
		queries:   map[string]int{},
		closes:    map[string]int{},
	}
}

func (g *fakeGateway) setTrade(ref string, status domain.TradeStatus, amount string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	res := &domain.TradeQueryResult{Found: status != domain.TradeNotFound, Status: status, Raw: []byte(`{"code":"10000"}`)}
	if amount != "" {
		res.Amount = decimal.RequireFromString(amount)
	}
	if status == domain.TradeSuccess {
		res.GatewayTransactionID = "TX-" + ref
	}
	g.trades[ref] = res
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, intent domain.PaymentIntent) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.intents = append(g.intents, intent)
	return "https://gateway.example.com/pay?out_trade_no=" + intent.OrderRef, nil
}

func (g *fakeGateway) QueryTrade(_ context.Context, ref string) (*domain.TradeQueryResult, error) {
	g.mu.Lock()
	g.queries[ref]++
	delay := g.queryDelay
	err := g.queryErr[ref]
	res, ok := g.trades[ref]
	onQuery := g.onQuery
	g.mu.Unlock()

	if onQuery != nil {
		onQuery(ref)
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return &domain.TradeQueryResult{Found: false, Status: domain.TradeNotFound}, nil
	}
	c := *res
	return &c, nil
}

func (g *fakeGateway) CloseTrade(_ context.Context, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closes[ref]++
	return g.closeErr
}

func (g *fakeGateway) RefundTrade(_ context.Context, req domain.RefundRequest) (*domain.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, req)
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	if g.refundResult != nil {
		return g.refundResult, nil
	}
	return &domain.RefundResult{Success: true, Code: "10000"}, nil
}

// VerifyCallback treats the payload as a key into pre-registered
// notifications; anything else fails verification.
func (g *fakeGateway) VerifyCallback(_ context.Context, raw []byte) (*domain.CallbackFields, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.callbacks[string(raw)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payload", domain.ErrGatewaySignatureInvalid)
	}
	c := *f
	return &c, nil
}

func (g *fakeGateway) queryCount(ref string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queries[ref]
}

func (g *fakeGateway) closeCount(ref string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closes[ref]
}

type fakeApplications struct {
	mu        sync.Mutex
	paidErr   error
	paid      map[string]int
	withdrawn map[string]int
}

func newFakeApplications() *fakeApplications {
	return &fakeApplications{paid: map[string]int{}, withdrawn: map[string]int{}}
}

func (a *fakeApplications) MarkPaid(_ context.Context, _, orderRef string, _ decimal.Decimal, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.paidErr != nil {
		return a.paidErr
	}
	a.paid[orderRef]++
	return nil
}

func (a *fakeApplications) MarkWithdrawn(_ context.Context, userID string, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.withdrawn[userID]++
	return nil
}

func (a *fakeApplications) paidCount(ref string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paid[ref]
}

func (a *fakeApplications) withdrawnCount(userID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.withdrawn[userID]
}

type fakeOrphans struct {
	mu     sync.Mutex
	parked map[string]*domain.Order
}

func (f *fakeOrphans) Park(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.parked == nil {
		f.parked = map[string]*domain.Order{}
	}
	f.parked[o.OrderRef] = cloneOrder(o)
	return nil
}

func (f *fakeOrphans) List(_ context.Context, _ int) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for _, o := range f.parked {
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

func (f *fakeOrphans) Remove(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.parked, ref)
	return nil
}

type fakeNotificationLog struct {
	mu      sync.Mutex
	entries []domain.NotificationLog
}

func (f *fakeNotificationLog) LogNotification(_ context.Context, e *domain.NotificationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
	return nil
}

type fakePublisher struct {
	events chan domain.PaymentEvent
}

func (p *fakePublisher) PublishPaymentEvent(_ context.Context, e domain.PaymentEvent) error {
	p.events <- e
	return nil
}

type testEnv struct {
	clock *fakeClock
	repo  *fakeOrderRepo
	gw    *fakeGateway
	apps  *fakeApplications
	uc    *DefaultPaymentUsecase
}

func newTestEnv() *testEnv {
	clock := newFakeClock()
	env := &testEnv{
		clock: clock,
		repo:  newFakeOrderRepo(clock),
		gw:    newFakeGateway(),
		apps:  newFakeApplications(),
	}
	env.uc = NewDefaultPaymentUsecase(env.repo, env.gw, env.apps, DefaultParams())
	env.uc.Now = clock.Now
	return env
}

// seedOrder stores a PENDING order created at the current fake time.
func (e *testEnv) seedOrder(ref, userID, amount string) *domain.Order {
	now := e.clock.Now()
	o := &domain.Order{
		ID:        "id-" + ref,
		OrderRef:  ref,
		UserID:    userID,
		Amount:    decimal.RequireFromString(amount),
		Subject:   "Application fee",
		Channel:   domain.ChannelDesktop,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpireAt:  now.Add(30 * time.Minute),
	}
	e.repo.put(o)
	return o
}
