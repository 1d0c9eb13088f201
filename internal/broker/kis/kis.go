// Package kis is the Korea Investment & Securities REST client. It covers
// the primitives the engine consumes: quotes, balance, cash orders, the
// open-order poll, cancellation and daily candles.
package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"kis-trading-bot/internal/interfaces"
)

const (
	realBaseURL    = "https://openapi.koreainvestment.com:9443"
	virtualBaseURL = "https://openapivts.koreainvestment.com:29443"
)

// KST is the KRX exchange timezone.
var KST = time.FixedZone("KST", 9*3600)

type Params struct {
	AppKey    string
	AppSecret string
	AccountNo string // 8-digit account, product code 01 assumed
	Mock      bool   // virtual trading domain
	BaseURL   string // override for tests
}

type orderMeta struct {
	orgNo   string // KRX forwarding branch, required for cancellation
	symbol  string
	quoteAt float64
}

type Client struct {
	p      Params
	base   string
	http   *http.Client
	now    func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	orders   map[string]orderMeta
}

var _ interfaces.Broker = (*Client)(nil)

func New(p Params) *Client {
	base := p.BaseURL
	if base == "" {
		if p.Mock {
			base = virtualBaseURL
		} else {
			base = realBaseURL
		}
	}
	return &Client{
		p:      p,
		base:   base,
		http:   &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
		orders: map[string]orderMeta{},
	}
}

// IsMarketOpen reports the KRX regular session: weekdays 09:00-15:30 KST.
// Exchange holidays are not modelled; the broker rejects orders on those
// days anyway.
func (c *Client) IsMarketOpen() bool {
	now := c.now().In(KST)
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	open := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, KST)
	close := time.Date(now.Year(), now.Month(), now.Day(), 15, 30, 0, 0, KST)
	return !now.Before(open) && !now.After(close)
}

// trID returns the transaction id for an endpoint, switching to the
// virtual-domain variant in mock mode.
func (c *Client) trID(real string) string {
	if c.p.Mock && len(real) > 0 && real[0] == 'T' {
		return "V" + real[1:]
	}
	return real
}

// accessToken returns a cached OAuth token, requesting a new one when the
// cached token is within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExp.Add(-time.Minute)) {
		return c.token, nil
	}

	body, _ := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.p.AppKey,
		"appsecret":  c.p.AppSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token request failed: %s: %s", resp.Status, b)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	c.token = out.AccessToken
	c.tokenExp = c.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return c.token, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path, trID string, query url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, token, trID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, b)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// post performs an authenticated POST with a JSON body.
func (c *Client) post(ctx context.Context, path, trID string, body, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	c.setHeaders(req, token, trID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST %s: %s: %s", path, resp.Status, rb)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request, token, trID string) {
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", c.p.AppKey)
	req.Header.Set("appsecret", c.p.AppSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("custtype", "P")
}
