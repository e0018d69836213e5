// Package chain reads the bitcoin chain tip from a mempool.space style API.
package chain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"

	"github.com/go-resty/resty/v2"
)

// Mempool implements ports.ChainInfo.
type Mempool struct {
	http *resty.Client
}

var _ ports.ChainInfo = (*Mempool)(nil)

// NewMempool creates a client for the mempool.space style API at baseURL.
func NewMempool(baseURL string, timeout time.Duration) *Mempool {
	return &Mempool{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout),
	}
}

// Tip returns the height from /blocks/tip/height and the hash of that block.
func (m *Mempool) Tip(ctx context.Context) (*domain.ChainTip, error) {
	heightText, err := m.text(ctx, "/blocks/tip/height")
	if err != nil {
		return nil, err
	}
	height, err := strconv.ParseInt(heightText, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing tip height %q: %w", heightText, err)
	}

	hash, err := m.text(ctx, "/block-height/"+strconv.FormatInt(height, 10))
	if err != nil {
		return nil, err
	}

	return &domain.ChainTip{Height: height, Hash: hash}, nil
}

func (m *Mempool) text(ctx context.Context, path string) (string, error) {
	resp, err := m.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("GET %s: status %d", path, resp.StatusCode())
	}
	return strings.TrimSpace(resp.String()), nil
}
