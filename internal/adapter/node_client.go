package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/logging"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tidwall/gjson"
)

// NodeStatus is the part of the CometBFT status response surfaced on /health
type NodeStatus struct {
	Endpoint     string    `json:"endpoint"`
	Network      string    `json:"network"`
	Moniker      string    `json:"moniker,omitempty"`
	LatestHeight int64     `json:"latestHeight"`
	LatestTime   time.Time `json:"latestTime,omitempty"`
	CatchingUp   bool      `json:"catchingUp"`
}

// NodeClient talks JSON-RPC to one or more chain nodes. It sticks to the
// current endpoint until it is rate limited, then fails over to the next
// one that is not cooling down.
type NodeClient struct {
	endpoints    []string
	clients      []*rpc.Client
	current      int
	cooldowns    map[int]time.Time
	cooldownTime time.Duration
	mu           sync.Mutex
}

// NodeClientConfig configures a NodeClient
type NodeClientConfig struct {
	Endpoints    []string
	CooldownTime time.Duration // Default 60s
}

// NewNodeClient creates a node client. Endpoints are dialed lazily.
func NewNodeClient(cfg *NodeClientConfig) (*NodeClient, error) {
	if cfg == nil || len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one RPC endpoint is required")
	}

	cooldown := cfg.CooldownTime
	if cooldown == 0 {
		cooldown = 60 * time.Second
	}

	return &NodeClient{
		endpoints:    cfg.Endpoints,
		clients:      make([]*rpc.Client, len(cfg.Endpoints)),
		cooldowns:    make(map[int]time.Time),
		cooldownTime: cooldown,
	}, nil
}

// NewNodeClientFromURLs creates a node client from comma-separated URLs
func NewNodeClientFromURLs(urls string) (*NodeClient, error) {
	var endpoints []string
	for _, ep := range strings.Split(urls, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			endpoints = append(endpoints, ep)
		}
	}
	return NewNodeClient(&NodeClientConfig{Endpoints: endpoints})
}

// Status calls the node's "status" method
func (n *NodeClient) Status(ctx context.Context) (*NodeStatus, error) {
	var lastErr error
	for i := 0; i < len(n.endpoints); i++ {
		client, endpoint, err := n.client(ctx)
		if err != nil {
			return nil, errors.NewTransportError(endpoint, err)
		}

		var raw json.RawMessage
		err = client.CallContext(ctx, &raw, "status")
		if err == nil {
			return parseNodeStatus(endpoint, raw), nil
		}
		lastErr = err

		if !IsRateLimitError(err) {
			return nil, errors.NewTransportError(endpoint, err)
		}
		if switchErr := n.onRateLimited(ctx); switchErr != nil {
			return nil, errors.NewServiceUnavailableError("chain node", switchErr)
		}
	}
	return nil, errors.NewServiceUnavailableError("chain node", lastErr)
}

func parseNodeStatus(endpoint string, raw []byte) *NodeStatus {
	status := &NodeStatus{
		Endpoint:     endpoint,
		Network:      gjson.GetBytes(raw, "node_info.network").String(),
		Moniker:      gjson.GetBytes(raw, "node_info.moniker").String(),
		LatestHeight: gjson.GetBytes(raw, "sync_info.latest_block_height").Int(),
		CatchingUp:   gjson.GetBytes(raw, "sync_info.catching_up").Bool(),
	}
	if ts := gjson.GetBytes(raw, "sync_info.latest_block_time").String(); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			status.LatestTime = t
		}
	}
	return status
}

// client returns the current endpoint's client, dialing it if needed
func (n *NodeClient) client(ctx context.Context) (*rpc.Client, string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	endpoint := n.endpoints[n.current]
	if n.clients[n.current] == nil {
		c, err := rpc.DialContext(ctx, endpoint)
		if err != nil {
			return nil, endpoint, err
		}
		n.clients[n.current] = c
	}
	return n.clients[n.current], endpoint, nil
}

// onRateLimited puts the current endpoint on cooldown and moves to the next available one
func (n *NodeClient) onRateLimited(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	logger := logging.FromContext(ctx).WithComponent("node-client")
	n.cooldowns[n.current] = time.Now()

	for i := 1; i <= len(n.endpoints); i++ {
		next := (n.current + i) % len(n.endpoints)
		if since, ok := n.cooldowns[next]; ok {
			if time.Since(since) < n.cooldownTime {
				continue
			}
			delete(n.cooldowns, next)
		}
		logger.WithFields(map[string]interface{}{
			"from": n.current,
			"to":   next,
		}).Warn("RPC endpoint rate limited, switching")
		n.current = next
		return nil
	}
	return fmt.Errorf("all %d RPC endpoints are rate limited", len(n.endpoints))
}

// CurrentEndpoint returns the endpoint currently in use
func (n *NodeClient) CurrentEndpoint() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.endpoints[n.current]
}

// IsRateLimitError checks if an error indicates rate limiting (429)
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// Close closes all dialed connections
func (n *NodeClient) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, c := range n.clients {
		if c != nil {
			c.Close()
			n.clients[i] = nil
		}
	}
}
