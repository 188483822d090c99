// Package match links scraped affidavit records to profiles on a second
// registry via fuzzy search.
//
// The matcher runs a bounded retry loop per candidate: query the search
// provider, wait for the result set to stabilize, evaluate rows in order
// against name/constituency/year predicates, and back off between
// attempts. Exhausting the attempt budget is a normal outcome
// (Unmatched), not an error.
package match

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/votelens/netalink/record"
	"github.com/votelens/netalink/textnorm"
)

// nameThreshold is the minimum similarity ratio for a display name to
// count as the same person when it is not a plain substring match.
const nameThreshold = 0.70

// Row is one search result from the profile registry. Rows are ephemeral;
// nothing outlives the match decision.
type Row struct {
	DisplayName      string
	ConstituencyText string
	ElectionLabel    string
	URL              string
}

// ResultSet is the rows returned for one query. Rows may change between
// observations while the source is still rendering asynchronously.
type ResultSet interface {
	Rows(ctx context.Context) ([]Row, error)
}

// SearchProvider issues a search query against the profile registry. It
// may be a live site or a recorded fixture.
type SearchProvider interface {
	Search(ctx context.Context, query string) (ResultSet, error)
}

// Outcome is the matcher's sole output per candidate: a linked profile
// URL, or nothing. No similarity score survives the decision.
type Outcome struct {
	URL     string
	Matched bool
}

// Matcher resolves candidates to profile URLs.
type Matcher struct {
	provider     SearchProvider
	logger       *slog.Logger
	origin       string
	maxAttempts  int
	backoffBase  time.Duration
	pollInterval time.Duration
	maxPolls     int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// WithOrigin sets the site origin used to resolve relative result URLs.
func WithOrigin(origin string) Option {
	return func(m *Matcher) { m.origin = origin }
}

// WithMaxAttempts bounds the retry loop per candidate.
func WithMaxAttempts(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithBackoff sets the base backoff between attempts. The actual delay is
// attempt-scaled. Zero disables sleeping, which tests rely on.
func WithBackoff(d time.Duration) Option {
	return func(m *Matcher) { m.backoffBase = d }
}

// WithPolling sets the interval and cap for result-set stability polling.
func WithPolling(interval time.Duration, maxPolls int) Option {
	return func(m *Matcher) {
		m.pollInterval = interval
		if maxPolls > 0 {
			m.maxPolls = maxPolls
		}
	}
}

// New creates a Matcher over the given search provider.
func New(provider SearchProvider, opts ...Option) *Matcher {
	m := &Matcher{
		provider:     provider,
		logger:       slog.Default(),
		origin:       "https://www.myneta.info",
		maxAttempts:  3,
		backoffBase:  time.Second,
		pollInterval: 300 * time.Millisecond,
		maxPolls:     6,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Link resolves one candidate to a profile URL. Constituency and year may
// be empty; empty fields relax the corresponding predicate. A candidate
// that survives all attempts without a hit is reported as unmatched, never
// as an error.
func (m *Matcher) Link(ctx context.Context, name, constituency, year string) Outcome {
	nameNorm := textnorm.Normalize(name)
	constNorm := textnorm.Normalize(constituency)

	attempt := 0
	var matchedURL string
	err := retry.Do(
		func() error {
			a := attempt
			attempt++
			u := m.attempt(ctx, a, name, constituency, nameNorm, constNorm, year)
			if u == "" {
				return record.ErrNoMatch
			}
			matchedURL = u
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(m.maxAttempts)), //nolint:gosec // maxAttempts is small and positive
		retry.DelayType(m.scaledBackoff),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, _ error) {
			m.logger.DebugContext(ctx, "no match yet, retrying", "name", name, "attempt", n+1)
		}),
	)
	if err != nil {
		m.logger.InfoContext(ctx, "candidate unmatched", "name", name, "attempts", m.maxAttempts)
		return Outcome{}
	}
	return Outcome{URL: matchedURL, Matched: true}
}

// scaledBackoff sleeps longer on each exhausted attempt, mirroring the
// registry's tolerance for being re-queried.
func (m *Matcher) scaledBackoff(n uint, _ error, _ *retry.Config) time.Duration {
	return m.backoffBase * time.Duration(n+2)
}

// attempt runs one search attempt. Any transient provider failure is
// treated the same as an empty result set for this attempt. Attempt 0
// queries the bare name and widens to name+constituency only if the first
// result set comes back empty; later attempts start from the widened
// query.
func (m *Matcher) attempt(ctx context.Context, attempt int, name, constituency, nameNorm, constNorm, year string) string {
	query := name
	if attempt > 0 && constituency != "" {
		query = name + " " + constituency
	}

	rows := m.search(ctx, query)
	if len(rows) == 0 && attempt == 0 && constituency != "" {
		rows = m.search(ctx, name+" "+constituency)
	}

	for _, row := range rows {
		if m.eligible(row, nameNorm, constNorm, year) {
			return m.resolveURL(row.URL)
		}
	}
	return ""
}

// search issues one query and waits for the result set to stop growing.
func (m *Matcher) search(ctx context.Context, query string) []Row {
	rs, err := m.provider.Search(ctx, query)
	if err != nil {
		m.logger.DebugContext(ctx, "search failed", "query", query, "error", err)
		return nil
	}
	return m.stableRows(ctx, rs)
}

// stableRows polls until two consecutive observations agree on the row
// count, capped at maxPolls iterations. The last observation wins either
// way.
func (m *Matcher) stableRows(ctx context.Context, rs ResultSet) []Row {
	rows, err := rs.Rows(ctx)
	if err != nil {
		m.logger.DebugContext(ctx, "result read failed", "error", err)
		return nil
	}
	for range m.maxPolls {
		if !m.sleep(ctx, m.pollInterval) {
			return rows
		}
		next, err := rs.Rows(ctx)
		if err != nil {
			return rows
		}
		if len(next) == len(rows) {
			return next
		}
		rows = next
	}
	return rows
}

// eligible applies the three row predicates. First eligible row wins; the
// caller never ranks beyond that.
func (m *Matcher) eligible(row Row, nameNorm, constNorm, year string) bool {
	rowName := textnorm.Normalize(row.DisplayName)
	nameOk := strings.Contains(rowName, nameNorm) ||
		textnorm.Similarity(nameNorm, rowName) >= nameThreshold
	if !nameOk {
		return false
	}

	if constNorm != "" {
		rowConst := textnorm.Normalize(row.ConstituencyText)
		if !strings.Contains(rowConst, constNorm) && !textnorm.SharesToken(constNorm, rowConst) {
			return false
		}
	}

	if year != "" && !strings.Contains(row.ElectionLabel, year) {
		return false
	}
	return true
}

// resolveURL makes a result URL absolute against the site origin.
func (m *Matcher) resolveURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	base, err := url.Parse(m.origin)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

// sleep waits for d unless the context ends first. Returns false when the
// context was canceled.
func (m *Matcher) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
