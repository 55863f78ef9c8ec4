package adapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docustore/internal/circuitbreaker"
	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/metrics"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// ErrTxNotFound means the node does not know the transaction (yet)
var ErrTxNotFound = stderrors.New("transaction not found")

// maxResponseBytes bounds what we read from the REST endpoint
const maxResponseBytes = 8 << 20

// WasmRESTClient runs smart queries and transaction lookups against a
// Cosmos SDK REST (LCD) endpoint
type WasmRESTClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
}

// WasmRESTClientConfig configures a WasmRESTClient
type WasmRESTClientConfig struct {
	BaseURL        string
	Timeout        time.Duration // Per request. Default 10s.
	RequestsPerSec int           // Client-side throttle. 0 disables it.
	HTTPClient     *http.Client  // Optional; overrides Timeout
	Breaker        *circuitbreaker.CircuitBreaker
}

// NewWasmRESTClient creates a REST client
func NewWasmRESTClient(cfg *WasmRESTClientConfig) (*WasmRESTClient, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("REST endpoint is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid REST endpoint: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestsPerSec)
	}

	breaker := cfg.Breaker
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("chain-rest"))
	}

	return &WasmRESTClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
		limiter: limiter,
		breaker: breaker,
	}, nil
}

// QuerySmart implements ContractQuerier
func (c *WasmRESTClient) QuerySmart(ctx context.Context, contract string, msg *QueryMsg, out interface{}) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveContractCall(metrics.KindQuery, msg.Name(), err, time.Since(start)) }()

	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.NewInternalError("encode query", err)
	}

	endpoint := fmt.Sprintf("%s/cosmwasm/wasm/v1/contract/%s/smart/%s",
		c.baseURL,
		url.PathEscape(contract),
		url.PathEscape(base64.StdEncoding.EncodeToString(payload)),
	)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return errors.NewDecodeError("smart query response", fmt.Errorf("missing data field"))
	}
	if err := decodeStrict([]byte(data.Raw), out); err != nil {
		return errors.NewDecodeError("smart query response", err)
	}
	return nil
}

// TxStatus is the subset of a transaction lookup we care about
type TxStatus struct {
	TxHash    string
	Height    int64
	Code      uint32
	RawLog    string
	GasWanted int64
	GasUsed   int64
}

// GetTx looks up a transaction by hash. Returns ErrTxNotFound while the
// transaction is not yet in a block.
func (c *WasmRESTClient) GetTx(ctx context.Context, hash string) (*TxStatus, error) {
	endpoint := fmt.Sprintf("%s/cosmos/tx/v1beta1/txs/%s", c.baseURL, url.PathEscape(hash))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		var catErr *errors.CategorizedError
		if stderrors.As(err, &catErr) && catErr.Category == errors.CategoryNotFound {
			return nil, ErrTxNotFound
		}
		return nil, err
	}

	resp := gjson.GetBytes(body, "tx_response")
	if !resp.Exists() {
		return nil, errors.NewDecodeError("transaction lookup", fmt.Errorf("missing tx_response"))
	}

	return &TxStatus{
		TxHash:    resp.Get("txhash").String(),
		Height:    resp.Get("height").Int(),
		Code:      uint32(resp.Get("code").Uint()),
		RawLog:    resp.Get("raw_log").String(),
		GasWanted: resp.Get("gas_wanted").Int(),
		GasUsed:   resp.Get("gas_used").Int(),
	}, nil
}

// get performs a throttled, breaker-guarded GET and maps failures onto categories
func (c *WasmRESTClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewTimeoutError("rate limiter", err)
	}

	var body []byte
	err := c.breaker.ExecuteClassified(ctx, func() error {
		var callErr error
		body, callErr = c.doGet(ctx, endpoint)
		return callErr
	}, func(err error) bool {
		return errors.IsCategory(err, errors.CategoryTransport)
	})
	if stderrors.Is(err, circuitbreaker.ErrCircuitOpen) || stderrors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return nil, errors.NewServiceUnavailableError("chain REST endpoint", err)
	}
	return body, err
}

func (c *WasmRESTClient) doGet(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewInternalError("build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewTimeoutError("chain REST endpoint", err)
		}
		return nil, errors.NewTransportError(c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.NewTransportError(c.baseURL, err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}
	return nil, mapRESTError(c.baseURL, resp.StatusCode, body)
}

// mapRESTError turns a non-200 LCD response into a categorized error. The
// LCD wraps gRPC status errors as {"code": n, "message": "..."}.
func mapRESTError(endpoint string, status int, body []byte) error {
	message := gjson.GetBytes(body, "message").String()
	grpcCode := gjson.GetBytes(body, "code").Int()

	switch {
	case status == http.StatusTooManyRequests:
		return errors.NewRateLimitError(0)
	case status == http.StatusNotFound || grpcCode == 5 || strings.Contains(message, "not found"):
		return errors.NewNotFoundError("chain resource", message)
	case message != "" && status < http.StatusInternalServerError:
		return errors.NewContractRejectionError(message)
	case message != "" && strings.Contains(message, "wasm"):
		// Query errors raised by the contract come back as 500 with a wasm message
		return errors.NewContractRejectionError(message)
	default:
		return errors.NewTransportError(endpoint, fmt.Errorf("unexpected status %d: %s", status, truncate(string(body), 200)))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
