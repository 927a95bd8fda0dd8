package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/iflog"
)

// INICIS result codes. Approval and cancellation use different conventions.
const (
	inicisApproveOK = "0000"
	inicisCancelOK  = "00"
)

const cancelReason = "customer change of mind"

// InicisConfig holds the merchant credentials and endpoints for the INICIS
// gateway. The approval and net-cancel endpoints are not configured here;
// INICIS hands them out per transaction inside the auth payload.
type InicisConfig struct {
	MID              string `mapstructure:"mid"`
	SignKey          string `mapstructure:"sign_key"`
	APIKey           string `mapstructure:"api_key"`
	RefundURL        string `mapstructure:"refund_url"`
	PartialRefundURL string `mapstructure:"partial_refund_url"`
}

// InicisClient talks to the INICIS gateway. INICIS authenticates every call
// with hex-encoded SHA digests over concatenated request fields.
type InicisClient struct {
	cfg    InicisConfig
	http   *http.Client
	logs   *iflog.Recorder
	logger zerolog.Logger
}

func NewInicisClient(cfg InicisConfig, httpClient *http.Client, logs *iflog.Recorder, logger zerolog.Logger) *InicisClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &InicisClient{cfg: cfg, http: httpClient, logs: logs, logger: logger}
}

func (c *InicisClient) Name() ledger.PGType { return ledger.PGInicis }

// AuthParams builds the signed parameter set the storefront needs to open the
// INICIS checkout window for an order.
func (c *InicisClient) AuthParams(orderNo string, price int64) map[string]string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	signature := sha256Hex(fmt.Sprintf("oid=%s&price=%d&timestamp=%s", orderNo, price, ts))
	verification := sha256Hex(fmt.Sprintf("oid=%s&price=%d&signKey=%s&timestamp=%s", orderNo, price, c.cfg.SignKey, ts))

	return map[string]string{
		"mid":          c.cfg.MID,
		"timestamp":    ts,
		"mKey":         sha256Hex(c.cfg.SignKey),
		"signature":    signature,
		"verification": verification,
	}
}

// Approve confirms the charge at the per-transaction approval endpoint INICIS
// returned during checkout.
func (c *InicisClient) Approve(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (Result, error) {
	authToken := stringField(auth, "authToken")
	authURL := stringField(auth, "authUrl")
	if authToken == "" || authURL == "" {
		return nil, fmt.Errorf("inicis approve: auth payload missing authToken/authUrl: %w", domainErrors.ErrApprovalRejected)
	}

	params := c.signedAuthParams(authToken)

	seq := c.logs.Request(ctx, ledger.PGInicis, iflog.TxApproval, orderNo, paymentNo, params)

	res, err := postForm(ctx, c.http, authURL, params)
	if err != nil {
		c.logs.Response(ctx, seq, map[string]string{"error": err.Error()}, "")
		return nil, fmt.Errorf("inicis approve: %v: %w", err, domainErrors.ErrApprovalRejected)
	}

	code := stringField(res, "resultCode")
	c.logs.Response(ctx, seq, res, code)

	if code != inicisApproveOK {
		c.logger.Error().Str("order_no", orderNo).Str("result_code", code).Msg("inicis approval rejected")
		return nil, fmt.Errorf("inicis approve: resultCode %q: %w", code, domainErrors.ErrApprovalRejected)
	}

	c.logger.Info().Str("order_no", orderNo).Str("tid", stringField(res, "tid")).Msg("inicis approval succeeded")
	return res, nil
}

// Cancel reverses amount of an approved charge. INICIS has distinct endpoints
// for full and partial cancellation; which one applies depends on whether any
// refundable balance remains after this cancel.
func (c *InicisClient) Cancel(ctx context.Context, orderNo string, paymentNo int64, tid string, amount, remainingAfter int64) error {
	cancelType := "refund"
	endpoint := c.cfg.RefundURL
	data := map[string]string{
		"tid": tid,
		"msg": cancelReason,
	}
	if remainingAfter > 0 {
		cancelType = "partialRefund"
		endpoint = c.cfg.PartialRefundURL
		data["price"] = strconv.FormatInt(amount, 10)
		data["confirmPrice"] = strconv.FormatInt(remainingAfter, 10)
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("inicis cancel: marshal data: %w", err)
	}

	ts := time.Now().Format("20060102150405")
	body := map[string]any{
		"mid":       c.cfg.MID,
		"type":      cancelType,
		"timestamp": ts,
		"clientIp":  "127.0.0.1",
		// hashData covers the exact serialized data block sent below.
		"hashData": sha512Hex(c.cfg.APIKey + c.cfg.MID + cancelType + ts + string(dataJSON)),
		"data":     json.RawMessage(dataJSON),
	}

	seq := c.logs.Request(ctx, ledger.PGInicis, iflog.TxCancel, orderNo, paymentNo, body)

	res, err := postJSON(ctx, c.http, endpoint, body, nil)
	if err != nil {
		c.logs.Response(ctx, seq, map[string]string{"error": err.Error()}, "")
		return fmt.Errorf("inicis %s: %v: %w", cancelType, err, domainErrors.ErrCancelRejected)
	}

	code := stringField(res, "resultCode")
	c.logs.Response(ctx, seq, res, code)

	if code != inicisCancelOK {
		c.logger.Error().Str("tid", tid).Str("result_code", code).Msg("inicis cancel rejected")
		return fmt.Errorf("inicis %s: resultCode %q: %w", cancelType, code, domainErrors.ErrCancelRejected)
	}

	c.logger.Info().Str("tid", tid).Int64("amount", amount).Str("type", cancelType).Msg("inicis cancel succeeded")
	return nil
}

// NetCancel reverses an approval whose order processing failed afterwards.
// INICIS returns a dedicated net-cancel endpoint in the auth payload.
func (c *InicisClient) NetCancel(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) error {
	authToken := stringField(auth, "authToken")
	netCancelURL := stringField(auth, "netCancelUrl")
	if authToken == "" || netCancelURL == "" {
		return fmt.Errorf("inicis net-cancel: auth payload missing authToken/netCancelUrl")
	}

	params := c.signedAuthParams(authToken)

	seq := c.logs.Request(ctx, ledger.PGInicis, iflog.TxNetCancel, orderNo, paymentNo, params)

	res, err := postForm(ctx, c.http, netCancelURL, params)
	if err != nil {
		c.logs.Response(ctx, seq, map[string]string{"error": err.Error()}, "")
		return fmt.Errorf("inicis net-cancel: %w", err)
	}

	code := stringField(res, "resultCode")
	c.logs.Response(ctx, seq, res, code)

	if code != inicisApproveOK {
		return fmt.Errorf("inicis net-cancel: resultCode %q", code)
	}

	c.logger.Warn().Str("order_no", orderNo).Int64("payment_no", paymentNo).Msg("inicis net-cancel succeeded")
	return nil
}

// ExternalRef extracts the transaction id and approval number from an INICIS
// approval result.
func (c *InicisClient) ExternalRef(res Result) (*ledger.ExternalRef, error) {
	tid := stringField(res, "tid")
	if tid == "" {
		return nil, fmt.Errorf("inicis approval result missing tid")
	}
	return &ledger.ExternalRef{
		TID:        tid,
		ApprovalNo: stringField(res, "applNum"),
	}, nil
}

// signedAuthParams builds the signed form for approval-style calls, which
// authenticate with digests over the per-transaction auth token.
func (c *InicisClient) signedAuthParams(authToken string) map[string]string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return map[string]string{
		"mid":          c.cfg.MID,
		"authToken":    authToken,
		"timestamp":    ts,
		"signature":    sha256Hex(fmt.Sprintf("authToken=%s&timestamp=%s", authToken, ts)),
		"verification": sha256Hex(fmt.Sprintf("authToken=%s&signKey=%s&timestamp=%s", authToken, c.cfg.SignKey, ts)),
		"charset":      "UTF-8",
		"format":       "JSON",
	}
}
