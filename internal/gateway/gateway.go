package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sejinpark/commercepay/internal/domain/ledger"
)

// Result is a gateway response parsed as a generic key-value payload. Clients
// read only the fields they need; the rest is kept for the interface log and
// for net-cancellation context.
type Result map[string]any

// Client is one external payment gateway. All provider-specific behavior
// (signatures, endpoints, result-code conventions, reference extraction)
// lives behind this interface; callers never branch on provider.
type Client interface {
	// Name returns the gateway identifier.
	Name() ledger.PGType
	// Approve confirms a charge using the auth payload the storefront
	// obtained from the gateway's checkout flow.
	Approve(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (Result, error)
	// Cancel reverses amount of a previously approved charge. remainingAfter
	// is the refundable balance left on the charge once this cancel lands;
	// gateways with separate full/partial endpoints pick by remainingAfter.
	Cancel(ctx context.Context, orderNo string, paymentNo int64, tid string, amount, remainingAfter int64) error
	// NetCancel reverses an approval whose surrounding order processing
	// failed. Best effort: an error only tells the caller what to log.
	NetCancel(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) error
	// ExternalRef extracts the gateway references from an approval result.
	ExternalRef(res Result) (*ledger.ExternalRef, error)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// postForm sends an application/x-www-form-urlencoded POST and decodes the
// JSON response body.
func postForm(ctx context.Context, client *http.Client, endpoint string, params map[string]string) (Result, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return doJSON(client, req)
}

// postJSON sends a JSON POST with optional extra headers and decodes the JSON
// response body.
func postJSON(ctx context.Context, client *http.Client, endpoint string, body any, headers map[string]string) (Result, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(client, req)
}

func doJSON(client *http.Client, req *http.Request) (Result, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	return res, nil
}

// stringField reads a string value from a generic payload.
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// intField reads an integer value from a generic payload, tolerating the
// float64 that encoding/json produces for numbers.
func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}
