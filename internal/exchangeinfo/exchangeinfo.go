// Package exchangeinfo loads remotely tunable swap settings (spreads, mirrors, streaming parameters)
// from the info servers and falls back to built-in defaults when they cannot be reached.
package exchangeinfo

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/vultisig/swap-quote/internal/race"
	"github.com/vultisig/swap-quote/internal/spread"
)

var DefaultInfoServers = []string{"https://info1.edge.app", "https://info2.edge.app"}

// Info is the effective configuration for one swap plugin.
type Info struct {
	Spreads           spread.Config
	MidgardServers    []string
	ThornodeServers   []string
	AffiliateFeeBasis string
	StreamingInterval int
	StreamingQuantity int
}

type remoteMap struct {
	Swap struct {
		Plugins map[string]*remoteInfo `json:"plugins"`
	} `json:"swap"`
}

type remoteInfo struct {
	PerAssetSpread                    []spread.Rule    `json:"perAssetSpread"`
	PerAssetSpreadStreaming           []spread.Rule    `json:"perAssetSpreadStreaming"`
	VolatilitySpread                  *decimal.Decimal `json:"volatilitySpread"`
	VolatilitySpreadStreaming         *decimal.Decimal `json:"volatilitySpreadStreaming"`
	LikeKindVolatilitySpread          *decimal.Decimal `json:"likeKindVolatilitySpread"`
	LikeKindVolatilitySpreadStreaming *decimal.Decimal `json:"likeKindVolatilitySpreadStreaming"`
	MidgardServers                    []string         `json:"midgardServers"`
	AffiliateFeeBasis                 *string          `json:"affiliateFeeBasis"`
	StreamingInterval                 *int             `json:"streamingInterval"`
	StreamingQuantity                 *int             `json:"streamingQuantity"`
	ThornodeServersWithPath           []string         `json:"thornodeServersWithPath"`
}

func (r *remoteInfo) validate() error {
	var missing []string
	if r.PerAssetSpread == nil {
		missing = append(missing, "perAssetSpread")
	}
	if r.VolatilitySpread == nil {
		missing = append(missing, "volatilitySpread")
	}
	if r.LikeKindVolatilitySpread == nil {
		missing = append(missing, "likeKindVolatilitySpread")
	}
	if r.MidgardServers == nil {
		missing = append(missing, "midgardServers")
	}
	if len(missing) > 0 {
		return fmt.Errorf("exchange info missing fields: %v", missing)
	}
	return nil
}

// apply overlays the remote settings onto defaults. Optional streaming fields keep the defaults when absent.
func (r *remoteInfo) apply(defaults Info) Info {
	out := defaults

	out.Spreads.Atomic = spread.Track{
		Rules:    r.PerAssetSpread,
		Default:  *r.VolatilitySpread,
		LikeKind: *r.LikeKindVolatilitySpread,
	}
	if r.PerAssetSpreadStreaming != nil {
		out.Spreads.Streaming.Rules = r.PerAssetSpreadStreaming
	}
	if r.VolatilitySpreadStreaming != nil {
		out.Spreads.Streaming.Default = *r.VolatilitySpreadStreaming
	}
	if r.LikeKindVolatilitySpreadStreaming != nil {
		out.Spreads.Streaming.LikeKind = *r.LikeKindVolatilitySpreadStreaming
	}

	out.MidgardServers = r.MidgardServers
	if r.ThornodeServersWithPath != nil {
		out.ThornodeServers = r.ThornodeServersWithPath
	}
	if r.AffiliateFeeBasis != nil {
		out.AffiliateFeeBasis = *r.AffiliateFeeBasis
	}
	if r.StreamingInterval != nil {
		out.StreamingInterval = *r.StreamingInterval
	}
	if r.StreamingQuantity != nil {
		out.StreamingQuantity = *r.StreamingQuantity
	}
	return out
}

type Client struct {
	fetcher *race.Fetcher
	servers []string
	appID   string
}

func NewClient(fetcher *race.Fetcher, servers []string, appID string) *Client {
	if len(servers) == 0 {
		servers = DefaultInfoServers
	}
	return &Client{
		fetcher: fetcher,
		servers: servers,
		appID:   appID,
	}
}

func (c *Client) fetch(ctx context.Context, pluginID string) (*remoteInfo, error) {
	path := "v1/exchangeInfo/" + url.PathEscape(c.appID)

	resp, err := c.fetcher.Fetch(ctx, race.Shuffled(c.servers), path, race.Request{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange info: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("failed to fetch exchange info: %w", resp.StatusError())
	}

	var m remoteMap
	if err := sonic.Unmarshal(resp.Body, &m); err != nil {
		return nil, fmt.Errorf("failed to decode exchange info: %w", err)
	}

	info, ok := m.Swap.Plugins[pluginID]
	if !ok || info == nil {
		return nil, errors.New("no exchange info for plugin " + pluginID)
	}
	if err := info.validate(); err != nil {
		return nil, err
	}
	return info, nil
}
