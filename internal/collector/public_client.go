package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

const (
	// MaxAttempts is the per-proxy attempt budget.
	MaxAttempts = 3
	// BackoffUnit is multiplied by the attempt number after a rate-limit reply.
	BackoffUnit = 450 * time.Millisecond

	maxBodyBytes = 8 << 20
)

// Observer receives one event per proxy attempt.
type Observer func(domain.FetchOutcome)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// PublicOptions configures a PublicClient. Zero values pick the defaults.
type PublicOptions struct {
	Proxies    []Proxy
	Preference string
	UserAgent  string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Sleep      Sleeper
	Observer   Observer
	Logger     *slog.Logger
}

// PublicClient fetches public upstream pages through rendering proxies,
// falling back from one proxy to the next.
type PublicClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	proxies    []Proxy
	sleep      Sleeper
	observe    Observer
}

func NewPublicClient(opts PublicOptions) *PublicClient {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pc := &PublicClient{
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		userAgent:  opts.UserAgent,
		proxies:    OrderProxies(opts.Proxies, opts.Preference),
		sleep:      opts.Sleep,
		observe:    opts.Observer,
	}
	if pc.httpClient == nil {
		pc.httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if pc.limiter == nil {
		// Proxies throttle aggressively; stay around 4 req/s.
		pc.limiter = rate.NewLimiter(rate.Every(250*time.Millisecond), 2)
	}
	if pc.sleep == nil {
		pc.sleep = sleepContext
	}
	if pc.observe == nil {
		pc.observe = LogObserver(logger)
	}
	return pc
}

// Proxies returns the effective proxy order.
func (pc *PublicClient) Proxies() []Proxy {
	return append([]Proxy(nil), pc.proxies...)
}

type fetchState int

const (
	stateTry fetchState = iota
	stateBackoff
	stateNextProxy
	stateDone
	stateAborted
)

// fetchRun is the mutable state of one Fetch call.
type fetchRun struct {
	resourceURL string
	proxy       int
	attempt     int
	attempts    int
	body        string
	last        error
}

// Fetch resolves resourceURL to page text. A rate-limit reply backs off and
// retries the same proxy; any other failure moves on to the next proxy.
func (pc *PublicClient) Fetch(ctx context.Context, resourceURL string) (string, error) {
	run := &fetchRun{resourceURL: resourceURL, attempt: 1}
	state := stateTry
	for {
		switch state {
		case stateTry:
			if run.proxy >= len(pc.proxies) {
				state = stateAborted
				continue
			}
			next, err := pc.try(ctx, run)
			if err != nil {
				return "", err
			}
			state = next
		case stateBackoff:
			if err := pc.sleep(ctx, BackoffUnit*time.Duration(run.attempt)); err != nil {
				return "", err
			}
			run.attempt++
			state = stateTry
		case stateNextProxy:
			run.proxy++
			run.attempt = 1
			state = stateTry
		case stateDone:
			return run.body, nil
		case stateAborted:
			return "", &ExhaustedError{Attempts: run.attempts, Last: run.last}
		}
	}
}

// try performs one attempt and picks the next state. It only returns an
// error when ctx is done.
func (pc *PublicClient) try(ctx context.Context, run *fetchRun) (fetchState, error) {
	if err := pc.limiter.Wait(ctx); err != nil {
		return stateAborted, err
	}

	p := pc.proxies[run.proxy]
	target := p.Wrap(run.resourceURL)
	run.attempts++
	outcome := domain.FetchOutcome{Proxy: p.Name, URL: run.resourceURL, Attempt: run.attempt}

	body, status, err := pc.get(ctx, target)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stateAborted, ctxErr
	}
	outcome.Status = status

	switch {
	case err == nil && status >= 200 && status < 300:
		outcome.OK = true
		pc.observe(outcome)
		run.body = body
		return stateDone, nil
	case err != nil:
		run.last = &ProxyError{Proxy: p.Name, Err: err}
	default:
		run.last = &ProxyError{Proxy: p.Name, Status: status, Err: fmt.Errorf("unexpected status %d", status)}
	}
	outcome.Message = run.last.Error()
	pc.observe(outcome)

	if status == http.StatusTooManyRequests && run.attempt < MaxAttempts {
		return stateBackoff, nil
	}
	return stateNextProxy, nil
}

func (pc *PublicClient) get(ctx context.Context, target string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", 0, err
	}
	if pc.userAgent != "" {
		req.Header.Set("User-Agent", pc.userAgent)
	}

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", resp.StatusCode, nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return string(raw), resp.StatusCode, nil
}

// LogObserver logs successful attempts at debug and failures at warn.
func LogObserver(logger *slog.Logger) Observer {
	return func(o domain.FetchOutcome) {
		attrs := []any{"proxy", o.Proxy, "url", o.URL, "attempt", o.Attempt, "status", o.Status}
		if o.OK {
			logger.Debug("Proxy fetch ok", attrs...)
			return
		}
		logger.Warn("Proxy fetch failed", append(attrs, "msg", o.Message)...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsExhausted reports whether err means every proxy failed.
func IsExhausted(err error) bool {
	return errors.Is(err, domain.ErrAllProxiesExhausted)
}
