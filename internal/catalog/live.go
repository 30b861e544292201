package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dtudk/dtu-env/internal/config"
	"github.com/dtudk/dtu-env/internal/logger"
)

// maxBody caps how much of any response is read.
const maxBody = 8 << 20

// LiveSource reads the catalog from the GitHub contents API and fetches each
// definition from raw.githubusercontent.com.
type LiveSource struct {
	ListingURL string
	RawURL     string
	// Token raises the API quota from 60 to 5000 requests per hour.
	Token  string
	Client *http.Client
	Log    *logger.Logger
}

// NewLiveSource builds a LiveSource whose requests time out after cfg.Timeout.
func NewLiveSource(cfg *config.Config, log *logger.Logger) *LiveSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &LiveSource{
		ListingURL: cfg.ListingURL,
		RawURL:     cfg.RawURL,
		Token:      cfg.Token,
		Client:     &http.Client{Timeout: timeout},
		Log:        log,
	}
}

// ListEnvironments lists the catalog files and parses each one in order.
func (s *LiveSource) ListEnvironments(ctx context.Context) ([]Environment, error) {
	names, err := s.ListFilenames(ctx)
	if err != nil {
		return nil, err
	}

	envs := make([]Environment, 0, len(names))
	for _, name := range names {
		data, err := s.RawDefinition(ctx, name)
		if err != nil {
			return nil, err
		}
		env, err := ParseDefinition(data, name)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	s.Log.Debug().Int("count", len(envs)).Msg("live catalog loaded")
	return dedupe(envs, s.Log), nil
}

type listingEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type apiMessage struct {
	Message string `json:"message"`
}

// ListFilenames returns the catalog filenames in the listing, sorted ascending.
func (s *LiveSource) ListFilenames(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ListingURL, nil)
	if err != nil {
		return nil, &UnavailableError{URL: s.ListingURL, Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, &UnavailableError{URL: s.ListingURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &UnavailableError{URL: s.ListingURL, Err: err}
	}

	if isRateLimited(resp, body) {
		s.Log.Warn().
			Int("status", resp.StatusCode).
			Bool("token", s.Token != "").
			Msg("GitHub rate limit reached")
		return nil, &RateLimitError{TokenSupplied: s.Token != "", Reset: rateLimitReset(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UnavailableError{URL: s.ListingURL, StatusCode: resp.StatusCode}
	}

	var entries []listingEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &ParseError{Filename: s.ListingURL, Err: err}
	}

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name, Extension) {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// RawDefinition fetches {RawURL}/{filename}. No credentials are sent.
func (s *LiveSource) RawDefinition(ctx context.Context, filename string) ([]byte, error) {
	u := s.RawURL + "/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &UnavailableError{URL: u, Err: err}
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, &UnavailableError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UnavailableError{URL: u, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &UnavailableError{URL: u, Err: err}
	}
	return data, nil
}

func (s *LiveSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: config.DefaultTimeout}
}

// isRateLimited recognises GitHub's quota responses: 403 or 429 with either
// an exhausted X-RateLimit-Remaining header or a "rate limit" message.
func isRateLimited(resp *http.Response, body []byte) bool {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	var msg apiMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(msg.Message), "rate limit")
}

func rateLimitReset(resp *http.Response) time.Time {
	v := resp.Header.Get("X-RateLimit-Reset")
	if v == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// IsTimeout reports whether err came from a request that ran out of time.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

// String describes the source for status lines.
func (s *LiveSource) String() string {
	u, err := url.Parse(s.ListingURL)
	if err != nil || u.Host == "" {
		return "live catalog"
	}
	return fmt.Sprintf("live catalog (%s)", u.Host)
}
