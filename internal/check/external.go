package check

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxRedirects = 5

// Outcome is the classification of one distinct remote target.
type Outcome struct {
	Status      Status
	FinalTarget string
	Detail      string
	Code        int
}

// ResultCache persists outcomes across runs. Implementations must treat
// every failure as a cache miss; the checker never propagates cache errors.
type ResultCache interface {
	Get(target string) (Outcome, bool)
	Put(target string, outcome Outcome)
}

// ExternalChecker classifies remote references by issuing HTTP requests
// under bounded concurrency. A fresh instance is created per run; the
// result map is run-scoped, never process-wide.
type ExternalChecker struct {
	client  *http.Client
	workers int
	cache   ResultCache
	agent   string

	mu       sync.Mutex
	inflight map[string]chan struct{}
	results  map[string]Outcome
}

// NewExternalChecker creates a checker with the given per-request timeout
// and worker count. cache may be nil.
func NewExternalChecker(timeout time.Duration, workers int, cache ResultCache) *ExternalChecker {
	if workers < 1 {
		workers = 1
	}
	return &ExternalChecker{
		client: &http.Client{
			Timeout: timeout,
			// Redirects are followed manually so permanent hops can be told
			// apart from temporary ones.
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		workers:  workers,
		cache:    cache,
		agent:    "mdcheck/1.0",
		inflight: make(map[string]chan struct{}),
		results:  make(map[string]Outcome),
	}
}

// NormalizeTarget canonicalizes a remote URL for deduplication: scheme and
// host are lowercased and the fragment is dropped. Unparsable URLs are
// returned as written so they still get a (failing) check.
func NormalizeTarget(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String()
}

// CheckAll drains the distinct target queue with the configured number of
// workers and returns an outcome per target. Classification is identical
// for any worker count; concurrency changes throughput, never results.
func (ec *ExternalChecker) CheckAll(ctx context.Context, targets []string) map[string]Outcome {
	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < ec.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				ec.Check(ctx, target)
			}
		}()
	}

	for _, target := range targets {
		jobs <- target
	}
	close(jobs)
	wg.Wait()

	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make(map[string]Outcome, len(ec.results))
	for k, v := range ec.results {
		out[k] = v
	}
	return out
}

// Check classifies one normalized target. A second request for an
// in-flight target waits for the first's result instead of issuing a
// duplicate call.
func (ec *ExternalChecker) Check(ctx context.Context, target string) Outcome {
	for {
		ec.mu.Lock()
		if outcome, ok := ec.results[target]; ok {
			ec.mu.Unlock()
			return outcome
		}
		if done, ok := ec.inflight[target]; ok {
			ec.mu.Unlock()
			<-done
			continue
		}
		done := make(chan struct{})
		ec.inflight[target] = done
		ec.mu.Unlock()

		outcome := ec.lookup(ctx, target)

		ec.mu.Lock()
		ec.results[target] = outcome
		delete(ec.inflight, target)
		close(done)
		ec.mu.Unlock()
		return outcome
	}
}

func (ec *ExternalChecker) lookup(ctx context.Context, target string) Outcome {
	if ec.cache != nil {
		if outcome, ok := ec.cache.Get(target); ok {
			slog.Debug("External check served from cache", "url", target, "status", outcome.Status)
			return outcome
		}
	}

	outcome := ec.checkURL(ctx, target)

	if ec.cache != nil {
		ec.cache.Put(target, outcome)
	}
	return outcome
}

// checkURL follows the redirect chain (bounded) and classifies the
// terminal response. Network-layer failures are converted to Broken, never
// propagated.
func (ec *ExternalChecker) checkURL(ctx context.Context, target string) Outcome {
	current := target
	sawPermanent := false

	for hop := 0; hop <= maxRedirects; hop++ {
		code, location, err := ec.request(ctx, current)
		if err != nil {
			return Outcome{Status: StatusBroken, Detail: describeNetworkError(err)}
		}

		switch {
		case code >= 200 && code < 300:
			if sawPermanent {
				return Outcome{Status: StatusRedirected, FinalTarget: current, Code: code}
			}
			return Outcome{Status: StatusValid, Code: code}

		case isRedirect(code):
			if location == "" {
				return Outcome{Status: StatusBroken, Code: code, Detail: "redirect without Location header"}
			}
			if code == http.StatusMovedPermanently || code == http.StatusPermanentRedirect {
				sawPermanent = true
			}
			next, err := resolveLocation(current, location)
			if err != nil {
				return Outcome{Status: StatusBroken, Code: code, Detail: "unparsable redirect target: " + location}
			}
			current = next

		default:
			return Outcome{Status: StatusBroken, Code: code, Detail: "HTTP " + strconv.Itoa(code) + " " + http.StatusText(code)}
		}
	}

	return Outcome{Status: StatusBroken, Detail: "too many redirects (stopped after " + strconv.Itoa(maxRedirects) + ")"}
}

// request issues a HEAD request, falling back to GET on servers that
// reject HEAD. Returns the status code and any Location header.
func (ec *ExternalChecker) request(ctx context.Context, target string) (int, string, error) {
	code, location, err := ec.do(ctx, http.MethodHead, target)
	if err == nil && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
		code, location, err = ec.do(ctx, http.MethodGet, target)
	}
	return code, location, err
}

func (ec *ExternalChecker) do(ctx context.Context, method, target string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", ec.agent)

	resp, err := ec.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, resp.Header.Get("Location"), nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	next, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(next).String(), nil
}

// describeNetworkError maps transport failures to the human-readable
// causes surfaced in result details.
func describeNetworkError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "DNS lookup failed for " + dnsErr.Name
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}

	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && sysErr.Syscall == "connect" {
		return "connection refused"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return err.Error()
}
