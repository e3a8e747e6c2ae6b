// Package chain talks to the validator node's HTTP JSON-RPC surface: the
// status endpoint used for readiness and the block-by-height endpoint used
// to extract the trusted state a bridge node bootstraps from.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a response parses but the expected field is
// absent, null, or fails the progress cross-check.
var ErrNotFound = errors.New("chain: trusted state not found")

// TrustedState identifies a known-good point in the validator's chain. It
// is produced once per devnet lifecycle and immutable afterwards.
type TrustedState struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
}

func (ts TrustedState) IsZero() bool { return ts.Hash == "" || ts.Height <= 0 }

type statusResponse struct {
	Result struct {
		SyncInfo struct {
			LatestBlockHeight string `json:"latest_block_height"`
			LatestBlockHash   string `json:"latest_block_hash"`
		} `json:"sync_info"`
	} `json:"result"`
}

type blockResponse struct {
	Result struct {
		BlockID struct {
			Hash string `json:"hash"`
		} `json:"block_id"`
		Block struct {
			Header struct {
				Height string `json:"height"`
			} `json:"header"`
		} `json:"block"`
	} `json:"result"`
}

// Client queries the validator RPC endpoint.
type Client struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// StatusURL returns the readiness endpoint for use with a readiness.Query.
func (c *Client) StatusURL() string { return c.baseURL + "/status" }

// HeightReady is the readiness predicate over the status endpoint body: the
// response must parse and latest_block_height must be an integer > 0. A
// reachable listener with height "0" is initializing, not ready.
func HeightReady(body []byte) bool {
	var sr statusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return false
	}
	h, err := strconv.ParseInt(sr.Result.SyncInfo.LatestBlockHeight, 10, 64)
	return err == nil && h > 0
}

// Height returns the current latest block height.
func (c *Client) Height(ctx context.Context) (int64, error) {
	var sr statusResponse
	if err := c.get(ctx, c.StatusURL(), &sr); err != nil {
		return 0, err
	}
	h, err := strconv.ParseInt(sr.Result.SyncInfo.LatestBlockHeight, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse latest_block_height %q: %w", sr.Result.SyncInfo.LatestBlockHeight, err)
	}
	return h, nil
}

// BlockHash returns the block identifier hash at the given height.
func (c *Client) BlockHash(ctx context.Context, height int64) (string, error) {
	var br blockResponse
	url := fmt.Sprintf("%s/block?height=%d", c.baseURL, height)
	if err := c.get(ctx, url, &br); err != nil {
		return "", err
	}
	return br.Result.BlockID.Hash, nil
}

// TrustedState extracts the trusted hash for the dependent bootstrap. The
// hash must be non-empty and not a null sentinel, and the reported height
// must be > 0; the two-field cross-check rejects a syntactically valid but
// stale snapshot. Call this only after the readiness poll has succeeded.
func (c *Client) TrustedState(ctx context.Context) (TrustedState, error) {
	height, err := c.Height(ctx)
	if err != nil {
		return TrustedState{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if height <= 0 {
		return TrustedState{}, fmt.Errorf("%w: chain not progressing (height %d)", ErrNotFound, height)
	}
	hash, err := c.BlockHash(ctx, height)
	if err != nil {
		return TrustedState{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !validHash(hash) {
		return TrustedState{}, fmt.Errorf("%w: block %d has no usable hash (%q)", ErrNotFound, height, hash)
	}
	c.logger.Info("extracted trusted state", "height", height, "hash", hash)
	return TrustedState{Hash: hash, Height: height}, nil
}

// validHash rejects empty values, JSON-null leakage, and all-zero
// placeholder hashes.
func validHash(h string) bool {
	h = strings.TrimSpace(h)
	if h == "" || strings.EqualFold(h, "null") {
		return false
	}
	if strings.Trim(h, "0") == "" {
		return false
	}
	return true
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
