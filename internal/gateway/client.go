// Package gateway fronts the quota-limited upstream match data provider with
// a rate limiter, a two-tier response cache, and a retry/backoff policy.
package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Endpoint families. Each family has its own quota bookkeeping and its own
// persistent cache table.
const (
	FamilyAccount     = "account"
	FamilySummoner    = "summoner"
	FamilyMatchList   = "match_list"
	FamilyMatchDetail = "match_detail"
	FamilyStatic      = "static"
)

// platformHosts maps platform regions to their API hosts.
var platformHosts = map[string]string{
	"na1":  "https://na1.api.riotgames.com",
	"euw1": "https://euw1.api.riotgames.com",
	"eun1": "https://eun1.api.riotgames.com",
	"kr":   "https://kr.api.riotgames.com",
	"jp1":  "https://jp1.api.riotgames.com",
	"br1":  "https://br1.api.riotgames.com",
	"la1":  "https://la1.api.riotgames.com",
	"la2":  "https://la2.api.riotgames.com",
	"oc1":  "https://oc1.api.riotgames.com",
	"tr1":  "https://tr1.api.riotgames.com",
	"ru":   "https://ru.api.riotgames.com",
}

// continentHosts maps continental routing regions to their API hosts.
// Match data and account lookups route continentally.
var continentHosts = map[string]string{
	"americas": "https://americas.api.riotgames.com",
	"europe":   "https://europe.api.riotgames.com",
	"asia":     "https://asia.api.riotgames.com",
}

// platformToContinent maps each platform region onto its continent.
var platformToContinent = map[string]string{
	"na1": "americas", "br1": "americas", "la1": "americas", "la2": "americas",
	"euw1": "europe", "eun1": "europe", "tr1": "europe", "ru": "europe",
	"kr": "asia", "jp1": "asia", "oc1": "asia",
}

// Request describes one logical upstream call.
type Request struct {
	Family      string
	Region      string // Platform region; resolved to a host per family
	Path        string // e.g. "/lol/match/v5/matches/EUW1_123"
	Query       url.Values
	Continental bool // Route via the continental host instead of the platform host
}

// CacheKey is a stable fingerprint of the logical request, independent of
// header or ordering noise.
func (r Request) CacheKey() string {
	raw := r.Family + "|" + r.Region + "|" + r.Path + "|" + r.Query.Encode()
	sum := sha256.Sum256([]byte(raw))
	return r.Family + ":" + hex.EncodeToString(sum[:16])
}

// Client issues raw HTTP calls to the upstream provider.
type Client struct {
	apiKey  string
	httpc   *http.Client
	log     zerolog.Logger
	baseURL string // Overrides host resolution when set (tests)
}

// NewClient creates an upstream provider client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpc:  &http.Client{Timeout: 30 * time.Second},
		log:    log.With().Str("client", "upstream").Logger(),
	}
}

// NewClientWithBaseURL creates a client pinned to a single base URL.
// Used by tests against httptest servers.
func NewClientWithBaseURL(apiKey, baseURL string, log zerolog.Logger) *Client {
	c := NewClient(apiKey, log)
	c.baseURL = baseURL
	return c
}

// hostFor resolves the base URL for a request.
func (c *Client) hostFor(req Request) (string, error) {
	if c.baseURL != "" {
		return c.baseURL, nil
	}
	if req.Continental {
		continent, ok := platformToContinent[req.Region]
		if !ok {
			return "", fmt.Errorf("unsupported region: %s", req.Region)
		}
		return continentHosts[continent], nil
	}
	host, ok := platformHosts[req.Region]
	if !ok {
		return "", fmt.Errorf("unsupported region: %s", req.Region)
	}
	return host, nil
}

// Do issues the upstream call and classifies the response.
// A transport-level failure is returned as an error; HTTP-level failures are
// expressed through the result's Outcome.
func (c *Client) Do(ctx context.Context, req Request) (UpstreamResult, error) {
	host, err := c.hostFor(req)
	if err != nil {
		return UpstreamResult{}, err
	}

	fullURL := host + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return UpstreamResult{}, fmt.Errorf("failed to build upstream request: %w", err)
	}
	httpReq.Header.Set("X-Riot-Token", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return UpstreamResult{}, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return UpstreamResult{}, fmt.Errorf("failed to read upstream response: %w", err)
	}

	result := classify(resp.StatusCode, resp.Header, payload)

	c.log.Debug().
		Str("family", req.Family).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Msg("Upstream call")

	return result, nil
}
