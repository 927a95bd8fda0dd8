package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/iflog"
)

// Toss judges success by a status string, not a numeric result code.
const (
	tossApproveOK = "DONE"
	tossCancelOK  = "CANCELED"
)

// TossConfig holds the Toss Payments credentials and API host.
type TossConfig struct {
	SecretKey  string `mapstructure:"secret_key"`
	APIBaseURL string `mapstructure:"api_base_url"`
}

// TossClient talks to the Toss Payments API. Authentication is HTTP Basic
// derived from the secret key; one cancel endpoint serves both full and
// partial cancellation, and net-cancellation reuses it.
type TossClient struct {
	cfg    TossConfig
	http   *http.Client
	logs   *iflog.Recorder
	logger zerolog.Logger
}

func NewTossClient(cfg TossConfig, httpClient *http.Client, logs *iflog.Recorder, logger zerolog.Logger) *TossClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TossClient{cfg: cfg, http: httpClient, logs: logs, logger: logger}
}

func (c *TossClient) Name() ledger.PGType { return ledger.PGToss }

func (c *TossClient) Approve(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (Result, error) {
	paymentKey := stringField(auth, "paymentKey")
	if paymentKey == "" {
		return nil, fmt.Errorf("toss approve: auth payload missing paymentKey: %w", domainErrors.ErrApprovalRejected)
	}

	body := map[string]any{
		"paymentKey": paymentKey,
		"orderId":    stringField(auth, "orderId"),
		"amount":     intField(auth, "amount"),
	}

	seq := c.logs.Request(ctx, ledger.PGToss, iflog.TxApproval, orderNo, paymentNo, body)

	res, err := postJSON(ctx, c.http, c.cfg.APIBaseURL+"/payments/confirm", body, c.authHeader())
	if err != nil {
		c.logs.Response(ctx, seq, map[string]string{"error": err.Error()}, "")
		return nil, fmt.Errorf("toss approve: %v: %w", err, domainErrors.ErrApprovalRejected)
	}

	status := stringField(res, "status")
	c.logs.Response(ctx, seq, res, status)

	if status != tossApproveOK {
		c.logger.Error().Str("order_no", orderNo).Str("status", status).Msg("toss approval rejected")
		return nil, fmt.Errorf("toss approve: status %q: %w", status, domainErrors.ErrApprovalRejected)
	}

	c.logger.Info().Str("order_no", orderNo).Str("payment_key", paymentKey).Msg("toss approval succeeded")
	return res, nil
}

// Cancel reverses amount of an approved charge. The amount alone decides
// between full and partial cancellation; remainingAfter is not needed here.
func (c *TossClient) Cancel(ctx context.Context, orderNo string, paymentNo int64, tid string, amount, remainingAfter int64) error {
	return c.cancel(ctx, iflog.TxCancel, orderNo, paymentNo, tid, amount)
}

// NetCancel has no dedicated Toss endpoint; it cancels the original auth
// amount through the normal cancel call.
func (c *TossClient) NetCancel(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) error {
	paymentKey := stringField(auth, "paymentKey")
	if paymentKey == "" {
		return fmt.Errorf("toss net-cancel: auth payload missing paymentKey")
	}
	return c.cancel(ctx, iflog.TxNetCancel, orderNo, paymentNo, paymentKey, intField(auth, "amount"))
}

func (c *TossClient) cancel(ctx context.Context, txType iflog.TransactionType, orderNo string, paymentNo int64, paymentKey string, amount int64) error {
	body := map[string]any{
		"cancelReason": cancelReason,
		"cancelAmount": amount,
	}

	seq := c.logs.Request(ctx, ledger.PGToss, txType, orderNo, paymentNo, body)

	res, err := postJSON(ctx, c.http, c.cfg.APIBaseURL+"/payments/"+paymentKey+"/cancel", body, c.authHeader())
	if err != nil {
		c.logs.Response(ctx, seq, map[string]string{"error": err.Error()}, "")
		return fmt.Errorf("toss cancel: %v: %w", err, domainErrors.ErrCancelRejected)
	}

	status := stringField(res, "status")
	c.logs.Response(ctx, seq, res, status)

	if status != tossCancelOK {
		c.logger.Error().Str("payment_key", paymentKey).Str("status", status).Msg("toss cancel rejected")
		return fmt.Errorf("toss cancel: status %q: %w", status, domainErrors.ErrCancelRejected)
	}

	c.logger.Info().Str("payment_key", paymentKey).Int64("amount", amount).Msg("toss cancel succeeded")
	return nil
}

// ExternalRef extracts the payment key and card approval number from a Toss
// approval result.
func (c *TossClient) ExternalRef(res Result) (*ledger.ExternalRef, error) {
	paymentKey := stringField(res, "paymentKey")
	if paymentKey == "" {
		return nil, fmt.Errorf("toss approval result missing paymentKey")
	}
	ref := &ledger.ExternalRef{TID: paymentKey}
	if card, ok := res["card"].(map[string]any); ok {
		ref.ApprovalNo = stringField(card, "approveNo")
	}
	return ref, nil
}

func (c *TossClient) authHeader() map[string]string {
	token := base64.StdEncoding.EncodeToString([]byte(c.cfg.SecretKey + ":"))
	return map[string]string{"Authorization": "Basic " + token}
}
