package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/logging"
	"github.com/docustore/internal/metrics"
	"github.com/docustore/internal/retry"
	"github.com/docustore/internal/types"
	"github.com/tidwall/gjson"
)

// TxLookup finds a transaction by hash
type TxLookup interface {
	GetTx(ctx context.Context, hash string) (*TxStatus, error)
}

// SignerClient executes contract calls through a signer gateway, the
// service that holds the wallet grant, signs and broadcasts. It then waits
// for the transaction to be included in a block.
type SignerClient struct {
	endpoint       string
	client         *http.Client
	lookup         TxLookup
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// SignerClientConfig configures a SignerClient
type SignerClientConfig struct {
	Endpoint       string
	Lookup         TxLookup
	HTTPClient     *http.Client
	ConfirmTimeout time.Duration // Default 60s
	PollInterval   time.Duration // First poll delay; backs off from here. Default 1s.
}

// NewSignerClient creates a signer gateway client
func NewSignerClient(cfg *SignerClientConfig) (*SignerClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("signer endpoint is required")
	}
	if cfg.Lookup == nil {
		return nil, fmt.Errorf("transaction lookup is required")
	}

	c := &SignerClient{
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		client:         cfg.HTTPClient,
		lookup:         cfg.Lookup,
		confirmTimeout: cfg.ConfirmTimeout,
		pollInterval:   cfg.PollInterval,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 30 * time.Second}
	}
	if c.confirmTimeout == 0 {
		c.confirmTimeout = 60 * time.Second
	}
	if c.pollInterval == 0 {
		c.pollInterval = time.Second
	}
	return c, nil
}

type executeRequest struct {
	Sender   string          `json:"sender"`
	Contract string          `json:"contract"`
	Msg      *ExecuteMsg     `json:"msg"`
	Fee      types.FeePolicy `json:"fee"`
}

// Execute implements ContractExecutor
func (c *SignerClient) Execute(ctx context.Context, sender, contract string, msg *ExecuteMsg, fee types.FeePolicy) (result *TxResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveContractCall(metrics.KindExecute, msg.Name(), err, time.Since(start)) }()

	hash, err := c.broadcast(ctx, &executeRequest{Sender: sender, Contract: contract, Msg: msg, Fee: fee})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"txHash":  hash,
		"message": msg.Name(),
	}).Debug("Transaction broadcast, awaiting confirmation")

	return c.waitForTx(ctx, hash)
}

func (c *SignerClient) broadcast(ctx context.Context, req *executeRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", errors.NewInternalError("encode execute request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/execute", bytes.NewReader(payload))
	if err != nil {
		return "", errors.NewInternalError("build execute request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errors.NewTransportError(c.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.NewTransportError(c.endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := gjson.GetBytes(body, "message").String()
		if message != "" && resp.StatusCode < http.StatusInternalServerError {
			// The gateway simulates before signing; a failed simulation is the contract saying no
			return "", errors.NewContractRejectionError(message)
		}
		return "", errors.NewTransportError(c.endpoint, fmt.Errorf("signer returned status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	if code := gjson.GetBytes(body, "code").Uint(); code != 0 {
		return "", errors.NewContractRejectionError(gjson.GetBytes(body, "raw_log").String())
	}
	hash := gjson.GetBytes(body, "txhash").String()
	if hash == "" {
		return "", errors.NewDecodeError("signer response", fmt.Errorf("missing txhash"))
	}
	return hash, nil
}

// waitForTx polls the lookup until the transaction shows up, backing off
// between polls, and bails out after the confirmation timeout
func (c *SignerClient) waitForTx(ctx context.Context, hash string) (*TxResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	var status *TxStatus
	err := retry.Do(ctx, &retry.Config{
		InitialDelay: c.pollInterval,
		MaxDelay:     4 * c.pollInterval,
		Multiplier:   1.5,
	}, func(ctx context.Context, attempt int) error {
		s, err := c.lookup.GetTx(ctx, hash)
		switch {
		case err == nil:
			status = s
			return nil
		case stderrors.Is(err, ErrTxNotFound):
			return err
		case errors.IsCategory(err, errors.CategoryTransport):
			return err
		default:
			return retry.Permanent(err)
		}
	})
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewTimeoutError("transaction "+hash, err)
		}
		return nil, err
	}

	if status.Code != 0 {
		return nil, errors.NewContractRejectionError(status.RawLog)
	}

	return &TxResult{
		TxHash:    hash,
		Height:    status.Height,
		GasWanted: status.GasWanted,
		GasUsed:   status.GasUsed,
	}, nil
}
