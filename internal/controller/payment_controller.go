package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/sejinpark/commercepay/internal/application/payment"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/gateway"
	infraRedis "github.com/sejinpark/commercepay/internal/infrastructure/redis"
	"github.com/sejinpark/commercepay/internal/strategy"
)

// PaymentController handles payment-related HTTP requests.
type PaymentController struct {
	orchestrator *payment.Orchestrator
	allocator    *payment.Allocator
	ledgerRepo   ledger.Repository
	inicis       *gateway.InicisClient
	redisClient  *redis.Client
	lockTTL      time.Duration
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(
	orchestrator *payment.Orchestrator,
	allocator *payment.Allocator,
	ledgerRepo ledger.Repository,
	inicis *gateway.InicisClient,
	redisClient *redis.Client,
	lockTTL time.Duration,
) *PaymentController {
	return &PaymentController{
		orchestrator: orchestrator,
		allocator:    allocator,
		ledgerRepo:   ledgerRepo,
		inicis:       inicis,
		redisClient:  redisClient,
		lockTTL:      lockTTL,
	}
}

// AuthParams handles GET /api/v1/payments/inicis/auth-params
func (h *PaymentController) AuthParams(w http.ResponseWriter, r *http.Request) {
	orderNo := r.URL.Query().Get("order_no")
	if orderNo == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "order_no is required", Code: "invalid_input"})
		return
	}
	price, err := strconv.ParseInt(r.URL.Query().Get("price"), 10, 64)
	if err != nil || price <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "price must be a positive integer", Code: "invalid_amount"})
		return
	}

	writeJSON(w, http.StatusOK, h.inicis.AuthParams(orderNo, price))
}

// ProcessPayments handles POST /api/v1/orders/{orderNo}/payments
func (h *PaymentController) ProcessPayments(w http.ResponseWriter, r *http.Request) {
	orderNo := chi.URLParam(r, "orderNo")

	var req ProcessPaymentsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	release, err := h.lockOrder(w, r, orderNo)
	if err != nil {
		return
	}
	defer release()

	lines := make([]strategy.LineRequest, 0, len(req.Payments))
	for _, p := range req.Payments {
		line := strategy.LineRequest{
			Method: ledger.Method(p.Method),
			Amount: p.Amount,
			Auth:   p.Auth,
		}
		if p.PGType != nil {
			t := ledger.PGType(*p.PGType)
			line.PGType = &t
		}
		lines = append(lines, line)
	}

	order := strategy.OrderContext{OrderNo: orderNo, MemberNo: req.MemberNo}
	if err := h.orchestrator.ProcessPayments(r.Context(), order, lines); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ProcessPaymentsResponse{OrderNo: orderNo, Status: "COMPLETED"})
}

// Cancel handles POST /api/v1/orders/{orderNo}/cancel
func (h *PaymentController) Cancel(w http.ResponseWriter, r *http.Request) {
	orderNo := chi.URLParam(r, "orderNo")

	var req CancelRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	release, err := h.lockOrder(w, r, orderNo)
	if err != nil {
		return
	}
	defer release()

	if err := h.allocator.AllocateRefund(r.Context(), orderNo, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProcessPaymentsResponse{OrderNo: orderNo, Status: "CANCELLED"})
}

// ListPayments handles GET /api/v1/orders/{orderNo}/payments
func (h *PaymentController) ListPayments(w http.ResponseWriter, r *http.Request) {
	orderNo := chi.URLParam(r, "orderNo")

	lines, err := h.ledgerRepo.ListByOrder(r.Context(), orderNo)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromLines(orderNo, lines))
}

// lockOrder takes the distributed per-order lock. On contention it writes
// the 409 response itself and returns a non-nil error.
func (h *PaymentController) lockOrder(w http.ResponseWriter, r *http.Request, orderNo string) (func(), error) {
	lock := infraRedis.NewDistributedLock(h.redisClient, "order:"+orderNo, h.lockTTL)
	acquired, err := lock.Acquire(r.Context())
	if err != nil {
		writeError(w, err)
		return nil, err
	}
	if !acquired {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: "order is being processed, please retry",
			Code:  "order_in_progress",
		})
		return nil, errLockContended
	}
	return func() { _ = lock.Release(r.Context()) }, nil
}
