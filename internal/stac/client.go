package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geoengine-bot/geoengine/internal/primitives"
)

// ClientOptions configures the catalog client.
type ClientOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond throttles search requests. Zero disables the
	// limiter.
	RequestsPerSecond float64
}

// Client talks to one STAC search endpoint. Requests are never retried;
// failures surface to the query that triggered them.
type Client struct {
	apiURL  string
	client  *http.Client
	opts    ClientOptions
	limiter *rate.Limiter
}

// NewClient creates a client for the search endpoint URL.
func NewClient(apiURL string, opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "geoengine/1.0"
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		apiURL:  apiURL,
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: limiter,
	}
}

// SearchParams is one item search, page number excluded.
type SearchParams struct {
	Collections []string
	Bbox        primitives.BoundingBox2D
	Start       time.Time
	End         time.Time
	Limit       int
}

func (p SearchParams) query(page int) url.Values {
	v := url.Values{}
	for _, c := range p.Collections {
		v.Add("collections[]", c)
	}
	// The endpoint wants array brackets around the bbox even though the
	// standard does not use them.
	v.Set("bbox", fmt.Sprintf("[%v,%v,%v,%v]",
		p.Bbox.LowerLeft.X, p.Bbox.LowerLeft.Y, p.Bbox.UpperRight.X, p.Bbox.UpperRight.Y))
	v.Set("datetime", p.Start.UTC().Format(time.RFC3339)+"/"+p.End.UTC().Format(time.RFC3339))
	v.Set("limit", strconv.Itoa(p.Limit))
	v.Set("page", strconv.Itoa(page))
	return v
}

// Search fetches one result page.
func (c *Client) Search(ctx context.Context, params SearchParams, page int) (SearchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return SearchResponse{}, eris.Wrap(err, "rate limiter wait")
		}
	}

	reqURL := c.apiURL + "?" + params.query(page).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return SearchResponse{}, eris.Wrap(err, "create search request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return SearchResponse{}, eris.Wrapf(err, "catalog search %s", c.apiURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SearchResponse{}, eris.Wrap(err, "read catalog response")
	}
	if resp.StatusCode != http.StatusOK {
		return SearchResponse{}, &ResponseError{
			URL:  c.apiURL,
			Body: string(body),
			Err:  eris.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var page0 SearchResponse
	if err := json.Unmarshal(body, &page0); err != nil {
		return SearchResponse{}, &ResponseError{URL: c.apiURL, Body: string(body), Err: err}
	}
	return page0, nil
}

// LoadAllFeatures fetches every result page sequentially and concatenates
// the features.
func (c *Client) LoadAllFeatures(ctx context.Context, params SearchParams) ([]Feature, error) {
	first, err := c.Search(ctx, params, 1)
	if err != nil {
		return nil, err
	}
	features := first.Features

	pages := 1
	if first.Context.Limit > 0 {
		pages = int(math.Ceil(float64(first.Context.Matched) / float64(first.Context.Limit)))
	}
	for page := 2; page <= pages; page++ {
		next, err := c.Search(ctx, params, page)
		if err != nil {
			return nil, err
		}
		features = append(features, next.Features...)
	}

	zap.L().Debug("catalog search finished",
		zap.String("url", c.apiURL),
		zap.Int("pages", pages),
		zap.Int("features", len(features)),
	)
	return features, nil
}
