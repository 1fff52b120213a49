// Package market fetches live token market data from the DexScreener
// public API.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "paladin-guard-backend/internal/common/errors"
)

// Pair is one trading pair as reported by DexScreener.
type Pair struct {
	DexID     string `json:"dexId"`
	PairAddr  string `json:"pairAddress"`
	PriceUSD  string `json:"priceUsd"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		M5  float64 `json:"m5"`
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV       float64 `json:"fdv"`
	MarketCap float64 `json:"marketCap"`
}

type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// TokenPair returns the token's primary Uniswap pair, falling back to
// the first listed pair when none is on Uniswap.
func (c *Client) TokenPair(ctx context.Context, tokenAddress string) (*Pair, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, tokenAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExternalAPI, "market request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExternalAPI, "market request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ErrCodeExternalAPI, fmt.Sprintf("market API returned status %d", resp.StatusCode))
	}

	var out pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExternalAPI, "market response decode")
	}
	if len(out.Pairs) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeExternalAPI, "no market pairs found for token")
	}

	for i := range out.Pairs {
		if strings.HasPrefix(out.Pairs[i].DexID, "uniswap") {
			return &out.Pairs[i], nil
		}
	}
	return &out.Pairs[0], nil
}

// Summary renders a short market snapshot suitable for chat replies.
func (p *Pair) Summary() string {
	return fmt.Sprintf(
		"%s (%s)\nPrice: $%s\nChange: %.2f%% (5m) / %.2f%% (1h) / %.2f%% (24h)\n24h volume: $%.0f\nLiquidity: $%.0f\nFDV: $%.0f\nMarket cap: $%.0f",
		p.BaseToken.Name, p.BaseToken.Symbol, p.PriceUSD,
		p.PriceChange.M5, p.PriceChange.H1, p.PriceChange.H24,
		p.Volume.H24, p.Liquidity.USD, p.FDV, p.MarketCap,
	)
}
