package testutil

import (
	"context"
	"sort"
	"sync"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/gateway"
	"github.com/sejinpark/commercepay/internal/iflog"
)

// --- Ledger Repository Mock ---

// MockLedgerRepository is an in-memory implementation of ledger.Repository.
type MockLedgerRepository struct {
	mu    sync.Mutex
	lines []*ledger.Line

	InsertFunc                    func(ctx context.Context, line *ledger.Line) error
	RefundableByOrderFunc         func(ctx context.Context, orderNo string) ([]*ledger.Line, error)
	UpdateRemainingRefundableFunc func(ctx context.Context, paymentNo int64, remaining int64) error
	ListByOrderFunc               func(ctx context.Context, orderNo string) ([]*ledger.Line, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) Insert(ctx context.Context, line *ledger.Line) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, line)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *line
	m.lines = append(m.lines, &cp)
	return nil
}

func (m *MockLedgerRepository) RefundableByOrder(ctx context.Context, orderNo string) ([]*ledger.Line, error) {
	if m.RefundableByOrderFunc != nil {
		return m.RefundableByOrderFunc(ctx, orderNo)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ledger.Line
	for _, l := range m.lines {
		if l.OrderNo == orderNo && l.EntryType == ledger.EntryPayment && l.RemainingRefundable > 0 {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentNo < out[j].PaymentNo })
	return out, nil
}

func (m *MockLedgerRepository) UpdateRemainingRefundable(ctx context.Context, paymentNo int64, remaining int64) error {
	if m.UpdateRemainingRefundableFunc != nil {
		return m.UpdateRemainingRefundableFunc(ctx, paymentNo, remaining)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lines {
		if l.PaymentNo == paymentNo {
			l.RemainingRefundable = remaining
			return nil
		}
	}
	return domainErrors.ErrPaymentNotFound
}

func (m *MockLedgerRepository) ListByOrder(ctx context.Context, orderNo string) ([]*ledger.Line, error) {
	if m.ListByOrderFunc != nil {
		return m.ListByOrderFunc(ctx, orderNo)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ledger.Line
	for _, l := range m.lines {
		if l.OrderNo == orderNo {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentNo < out[j].PaymentNo })
	return out, nil
}

// Lines returns a snapshot of all stored lines in insertion order.
func (m *MockLedgerRepository) Lines() []*ledger.Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ledger.Line, 0, len(m.lines))
	for _, l := range m.lines {
		cp := *l
		out = append(out, &cp)
	}
	return out
}

// Seed stores lines without going through Insert.
func (m *MockLedgerRepository) Seed(lines ...*ledger.Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range lines {
		cp := *l
		m.lines = append(m.lines, &cp)
	}
}

// Clear drops all stored lines.
func (m *MockLedgerRepository) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
}

// --- Member Repository Mock ---

// MockMemberRepository is an in-memory implementation of member.Repository.
type MockMemberRepository struct {
	mu       sync.Mutex
	balances map[string]int64

	PointBalanceFunc func(ctx context.Context, memberNo string) (int64, error)
	AdjustPointsFunc func(ctx context.Context, memberNo string, delta int64) error
}

func NewMockMemberRepository() *MockMemberRepository {
	return &MockMemberRepository{balances: make(map[string]int64)}
}

func (m *MockMemberRepository) SetBalance(memberNo string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[memberNo] = balance
}

func (m *MockMemberRepository) Balance(memberNo string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[memberNo]
}

func (m *MockMemberRepository) PointBalance(ctx context.Context, memberNo string) (int64, error) {
	if m.PointBalanceFunc != nil {
		return m.PointBalanceFunc(ctx, memberNo)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[memberNo]
	if !ok {
		return 0, domainErrors.ErrMemberNotFound
	}
	return balance, nil
}

func (m *MockMemberRepository) AdjustPoints(ctx context.Context, memberNo string, delta int64) error {
	if m.AdjustPointsFunc != nil {
		return m.AdjustPointsFunc(ctx, memberNo, delta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[memberNo]; !ok {
		return domainErrors.ErrMemberNotFound
	}
	m.balances[memberNo] += delta
	return nil
}

// --- Order Repository Mock ---

// MockOrderRepository is an in-memory implementation of order.Repository.
type MockOrderRepository struct {
	mu     sync.Mutex
	owners map[string]string

	OwnerByOrderNoFunc func(ctx context.Context, orderNo string) (string, error)
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{owners: make(map[string]string)}
}

func (m *MockOrderRepository) SetOwner(orderNo, memberNo string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[orderNo] = memberNo
}

func (m *MockOrderRepository) OwnerByOrderNo(ctx context.Context, orderNo string) (string, error) {
	if m.OwnerByOrderNoFunc != nil {
		return m.OwnerByOrderNoFunc(ctx, orderNo)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[orderNo]
	if !ok {
		return "", domainErrors.ErrOrderNotFound
	}
	return owner, nil
}

// --- Sequence Mock ---

// MockSequence hands out ascending payment numbers starting from 1.
type MockSequence struct {
	mu   sync.Mutex
	next int64

	NextPaymentNoFunc func(ctx context.Context) (int64, error)
}

func NewMockSequence() *MockSequence {
	return &MockSequence{}
}

// SetLast makes the next issued number lastNo+1, so seeded fixtures and
// issued numbers never collide.
func (m *MockSequence) SetLast(lastNo int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = lastNo
}

func (m *MockSequence) NextPaymentNo(ctx context.Context) (int64, error) {
	if m.NextPaymentNoFunc != nil {
		return m.NextPaymentNoFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return m.next, nil
}

// --- Transaction Manager Mock ---

// MockTxManager runs the unit of work directly. OnRollback, when set, is
// invoked after fn fails so tests can undo in-memory writes the way a real
// transaction rollback would.
type MockTxManager struct {
	OnRollback          func()
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

func (m *MockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	if err := fn(ctx); err != nil {
		if m.OnRollback != nil {
			m.OnRollback()
		}
		return err
	}
	return nil
}

// --- Interface Log Repository Mock ---

// MockIfLogRepository is an in-memory implementation of iflog.Repository.
type MockIfLogRepository struct {
	mu      sync.Mutex
	entries []*iflog.Entry

	InsertFunc         func(ctx context.Context, e *iflog.Entry) (int64, error)
	UpdateResponseFunc func(ctx context.Context, seq int64, responseJSON []byte, resultCode string) error
}

func NewMockIfLogRepository() *MockIfLogRepository {
	return &MockIfLogRepository{}
}

func (m *MockIfLogRepository) Insert(ctx context.Context, e *iflog.Entry) (int64, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	cp.Seq = int64(len(m.entries) + 1)
	m.entries = append(m.entries, &cp)
	return cp.Seq, nil
}

func (m *MockIfLogRepository) UpdateResponse(ctx context.Context, seq int64, responseJSON []byte, resultCode string) error {
	if m.UpdateResponseFunc != nil {
		return m.UpdateResponseFunc(ctx, seq, responseJSON, resultCode)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Seq == seq {
			e.ResponseJSON = responseJSON
			if resultCode != "" {
				code := resultCode
				e.ResultCode = &code
			}
			return nil
		}
	}
	return domainErrors.ErrPaymentNotFound
}

// Entries returns a snapshot of the recorded entries.
func (m *MockIfLogRepository) Entries() []*iflog.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*iflog.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// --- Gateway Client Mock ---

// NetCancelCall records one net-cancel invocation.
type NetCancelCall struct {
	OrderNo   string
	PaymentNo int64
	Auth      map[string]any
}

// CancelCall records one cancel invocation.
type CancelCall struct {
	OrderNo        string
	PaymentNo      int64
	TID            string
	Amount         int64
	RemainingAfter int64
}

// MockGatewayClient is a configurable implementation of gateway.Client.
type MockGatewayClient struct {
	mu sync.Mutex

	NameVal         ledger.PGType
	ApproveFunc     func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (gateway.Result, error)
	CancelFunc      func(ctx context.Context, orderNo string, paymentNo int64, tid string, amount, remainingAfter int64) error
	NetCancelFunc   func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) error
	ExternalRefFunc func(res gateway.Result) (*ledger.ExternalRef, error)

	netCancelCalls []NetCancelCall
	cancelCalls    []CancelCall
}

func NewMockGatewayClient(name ledger.PGType) *MockGatewayClient {
	return &MockGatewayClient{NameVal: name}
}

func (m *MockGatewayClient) Name() ledger.PGType { return m.NameVal }

func (m *MockGatewayClient) Approve(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (gateway.Result, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, orderNo, paymentNo, auth)
	}
	return gateway.Result{"tid": "mock-tid", "applNum": "mock-appr"}, nil
}

func (m *MockGatewayClient) Cancel(ctx context.Context, orderNo string, paymentNo int64, tid string, amount, remainingAfter int64) error {
	m.mu.Lock()
	m.cancelCalls = append(m.cancelCalls, CancelCall{OrderNo: orderNo, PaymentNo: paymentNo, TID: tid, Amount: amount, RemainingAfter: remainingAfter})
	m.mu.Unlock()
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, orderNo, paymentNo, tid, amount, remainingAfter)
	}
	return nil
}

func (m *MockGatewayClient) NetCancel(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) error {
	m.mu.Lock()
	m.netCancelCalls = append(m.netCancelCalls, NetCancelCall{OrderNo: orderNo, PaymentNo: paymentNo, Auth: auth})
	m.mu.Unlock()
	if m.NetCancelFunc != nil {
		return m.NetCancelFunc(ctx, orderNo, paymentNo, auth)
	}
	return nil
}

func (m *MockGatewayClient) ExternalRef(res gateway.Result) (*ledger.ExternalRef, error) {
	if m.ExternalRefFunc != nil {
		return m.ExternalRefFunc(res)
	}
	tid, _ := res["tid"].(string)
	approvalNo, _ := res["applNum"].(string)
	return &ledger.ExternalRef{TID: tid, ApprovalNo: approvalNo}, nil
}

// NetCancelCalls returns the recorded net-cancel invocations.
func (m *MockGatewayClient) NetCancelCalls() []NetCancelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NetCancelCall(nil), m.netCancelCalls...)
}

// CancelCalls returns the recorded cancel invocations.
func (m *MockGatewayClient) CancelCalls() []CancelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CancelCall(nil), m.cancelCalls...)
}
