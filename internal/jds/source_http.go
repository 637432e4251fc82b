package jds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/Azee177/jianli/internal/shared/telemetry"
)

// HTTPSourceConfig configures a JSON job board.
type HTTPSourceConfig struct {
	Name    string
	BaseURL string
	// Company scopes a direct company site; empty for a general board.
	Company string
	RPS     float64
	Timeout time.Duration
	Client  *http.Client
}

// HTTPSource reads postings from a JSON board exposing
//
//	GET {base}/postings?title=&company=&city=&limit=  -> {"postings":[...]}
//	GET {base}/postings/lookup?url=                   -> posting or 404
type HTTPSource struct {
	name    string
	base    string
	company string
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]Posting]
}

// NewHTTPSource builds an HTTP board source with rate limiting and a breaker.
func NewHTTPSource(cfg HTTPSourceConfig) (*HTTPSource, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("source %q: base url is required", cfg.Name)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("source %q: %w", cfg.Name, err)
	}
	name := cfg.Name
	if name == "" {
		name = base
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 2
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	cb := gobreaker.NewCircuitBreaker[[]Posting](gobreaker.Settings{
		Name:        "jd-source-" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Warn("jds.source_breaker", map[string]any{"source": name, "from": from.String(), "to": to.String()})
		},
	})
	return &HTTPSource{
		name:    name,
		base:    base,
		company: cfg.Company,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cb:      cb,
	}, nil
}

func (s *HTTPSource) Name() string { return s.name }

type postingsEnvelope struct {
	Postings []Posting `json:"postings"`
}

// FetchPostings queries the board.
func (s *HTTPSource) FetchPostings(ctx context.Context, q Query, limit int) ([]Posting, error) {
	params := url.Values{}
	params.Set("title", q.Title)
	company := q.Company
	if s.company != "" {
		company = s.company
	}
	if company != "" {
		params.Set("company", company)
	}
	if q.City != "" {
		params.Set("city", q.City)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return s.cb.Execute(func() ([]Posting, error) {
		var env postingsEnvelope
		if err := s.getJSON(ctx, "/postings?"+params.Encode(), &env); err != nil {
			return nil, err
		}
		if limit > 0 && len(env.Postings) > limit {
			env.Postings = env.Postings[:limit]
		}
		return env.Postings, nil
	})
}

// FetchPostingByURL looks a posting up by its canonical url.
func (s *HTTPSource) FetchPostingByURL(ctx context.Context, postingURL string) (Posting, error) {
	out, err := s.cb.Execute(func() ([]Posting, error) {
		var p Posting
		if err := s.getJSON(ctx, "/postings/lookup?url="+url.QueryEscape(postingURL), &p); err != nil {
			return nil, err
		}
		return []Posting{p}, nil
	})
	if err != nil {
		return Posting{}, err
	}
	if out[0].URL == "" {
		out[0].URL = postingURL
	}
	return out[0], nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, dst any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("source %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("source %s: http status %d", s.name, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(dst); err != nil {
		return fmt.Errorf("source %s: decode: %w", s.name, err)
	}
	return nil
}

var _ Source = (*HTTPSource)(nil)
