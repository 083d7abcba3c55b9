package statement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/aifinanalyst/internal/config"
	"github.com/seenimoa/aifinanalyst/internal/infra"
	"github.com/seenimoa/aifinanalyst/pkg/utils"
)

// DefaultBaseURL is the FMP v3 REST root.
const DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

// Fetcher retrieves statements from FMP. It holds no per-request state and
// is safe for concurrent use.
type Fetcher struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *log.Logger
	debug   bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithBaseURL points the fetcher at another FMP-compatible root.
func WithBaseURL(u string) FetcherOption {
	return func(f *Fetcher) { f.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the logger. Lines are prefixed with "statement: ".
func WithLogger(l *log.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithDebug logs every outbound URL (key redacted).
func WithDebug(on bool) FetcherOption {
	return func(f *Fetcher) { f.debug = on }
}

// NewFetcher creates a fetcher from the FMP section of the config.
func NewFetcher(cfg config.FMPConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		apiKey:  cfg.APIKey,
		baseURL: DefaultBaseURL,
		timeout: cfg.Timeout,
		logger:  log.Default(),
	}
	if cfg.BaseURL != "" {
		f.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = infra.NewHTTPClient(f.timeout)
	}
	return f
}

// URL builds the endpoint URL for req, API key included.
func (f *Fetcher) URL(req Request) string {
	kind := MustKind(req.Type)
	q := url.Values{}
	q.Set("period", req.Period.Token())
	q.Set("limit", strconv.Itoa(req.Limit))
	q.Set("apikey", f.apiKey)

	path := fmt.Sprintf(kind.Endpoint, utils.TickerPathSegment(utils.NormalizeTicker(req.Ticker)))
	return f.baseURL + path + "?" + q.Encode()
}

// Fetch retrieves one statement table. It never returns a nil table: on
// failure the table is empty and the error is a *FetchError. req is used as
// given; call Request.Validate first.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Table, error) {
	req = req.Normalized()
	u := f.URL(req)
	fail := func(kind ErrKind, err error) (*Table, error) {
		fe := &FetchError{Kind: kind, Ticker: req.Ticker, Type: req.Type, Err: err}
		f.logf("%v", fe)
		return NewTable(), fe
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	if f.debug {
		f.logf("GET %s", infra.RedactURL(u))
	}
	start := time.Now()
	resp, err := infra.DoGet(ctx, f.client, u, jsonHeaders())
	if err != nil {
		return fail(ErrKindTransport, err)
	}
	defer infra.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fe := &FetchError{
			Kind:       ErrKindHTTP,
			Ticker:     req.Ticker,
			Type:       req.Type,
			StatusCode: resp.StatusCode,
			Detail:     upstreamMessage(resp.Body),
		}
		f.logf("%v", fe)
		return NewTable(), fe
	}

	data, err := infra.ReadBody(resp.Body)
	if err != nil {
		return fail(ErrKindTransport, err)
	}

	table, err := ParseTable(data)
	if err != nil {
		fe := &FetchError{Kind: ErrKindData, Ticker: req.Ticker, Type: req.Type, Err: err}
		if errors.Is(err, ErrNotArray) {
			fe.Detail = upstreamMessageFrom(data)
		}
		f.logf("%v", fe)
		return NewTable(), fe
	}

	if f.debug {
		f.logf("%s: %d rows, %d columns in %v", req, table.Len(), len(table.Columns), time.Since(start).Round(time.Millisecond))
	}
	return table, nil
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.logger != nil {
		f.logger.Printf("statement: "+format, args...)
	}
}

func jsonHeaders() map[string]string {
	return map[string]string{"Accept": "application/json"}
}

// upstreamMessage pulls FMP's error text out of a response body, if any.
func upstreamMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	return upstreamMessageFrom(data)
}

// upstreamMessageFrom recognizes FMP's {"Error Message": "..."} envelope
// (sent with status 200 for bad keys and exhausted quotas) and the generic
// {"message": "..."} shape.
func upstreamMessageFrom(data []byte) string {
	var env map[string]any
	if json.Unmarshal(data, &env) != nil {
		return ""
	}
	for _, k := range []string{"Error Message", "error", "message"} {
		if s, ok := env[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
