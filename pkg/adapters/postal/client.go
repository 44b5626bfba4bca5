// Package postal resolves Indian postal (PIN) codes through the India Post
// directory API.
package postal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultBaseURL is the public India Post PIN code endpoint.
const DefaultBaseURL = "https://api.postalpincode.in/pincode"

const maxResponseBytes = 1 << 20

// Client implements ports.AddressLookup.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New creates a lookup client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type postOffice struct {
	Name     string `json:"Name"`
	District string `json:"District"`
	Division string `json:"Division"`
	Block    string `json:"Block"`
	State    string `json:"State"`
}

type lookupResult struct {
	Status     string       `json:"Status"`
	Message    string       `json:"Message"`
	PostOffice []postOffice `json:"PostOffice"`
}

// Resolve maps the first post office of code to an address. Unknown codes
// return domain.ErrNotFound.
func (c *Client) Resolve(ctx context.Context, code string) (domain.Address, error) {
	ctx, span := otel.Tracer("intake/postal").Start(ctx, "AddressLookup.Resolve")
	span.SetAttributes(attribute.String("postal_code", code))
	defer span.End()

	addr, err := c.resolve(ctx, code)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return addr, err
}

func (c *Client) resolve(ctx context.Context, code string) (domain.Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(code), nil)
	if err != nil {
		return domain.Address{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Address{}, fmt.Errorf("lookup %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Address{}, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Address{}, fmt.Errorf("lookup %s: unexpected status %d", code, resp.StatusCode)
	}

	var results []lookupResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&results); err != nil {
		return domain.Address{}, fmt.Errorf("decode lookup response: %w", err)
	}
	if len(results) == 0 || !strings.EqualFold(results[0].Status, "Success") || len(results[0].PostOffice) == 0 {
		return domain.Address{}, domain.ErrNotFound
	}
	return toAddress(results[0].PostOffice[0]), nil
}

// toAddress prefers the block over the postal division as sub-region; the
// directory fills unknown blocks with "NA".
func toAddress(po postOffice) domain.Address {
	sub := po.Block
	if sub == "" || strings.EqualFold(sub, "NA") {
		sub = po.Division
	}
	station := sub
	if station == "" {
		station = po.District
	}
	return domain.Address{
		Area:          po.Name,
		District:      po.District,
		SubRegion:     sub,
		PoliceStation: station + " Police Station",
	}
}
