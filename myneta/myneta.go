// Package myneta fetches and parses the MyNeta affidavit registry: the
// search endpoint used for record linkage, and candidate profile pages
// used for field extraction.
package myneta

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/votelens/netalink/extract"
	"github.com/votelens/netalink/httpcache"
	"github.com/votelens/netalink/match"
	"github.com/votelens/netalink/record"
)

// Origin is the registry site origin; relative profile links resolve
// against it.
const Origin = "https://www.myneta.info"

// Client handles MyNeta requests. It implements match.SearchProvider.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	origin     string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache  httpcache.Cacher
	logger *slog.Logger
	origin string
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithOrigin overrides the site origin, which tests point at a local
// fixture server.
func WithOrigin(origin string) Option {
	return func(c *config) { c.origin = origin }
}

// New creates a MyNeta client. The underlying HTTP client carries a
// cookie jar and is reused for every query in a run; the pipeline is
// sequential, so a single session handle suffices.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), origin: Origin}
	for _, opt := range opts {
		opt(cfg)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	client := httpcache.NewClient(10 * time.Second)
	client.Jar = jar

	return &Client{
		httpClient: client,
		cache:      cfg.cache,
		logger:     cfg.logger,
		origin:     cfg.origin,
	}, nil
}

// staticResults is a fully-materialized result set: an HTTP response does
// not render incrementally, so the rows are stable from the first
// observation.
type staticResults struct {
	rows []match.Row
}

func (s *staticResults) Rows(_ context.Context) ([]match.Row, error) {
	return s.rows, nil
}

// Search queries the registry's search endpoint and parses the result
// table. It implements match.SearchProvider.
func (c *Client) Search(ctx context.Context, query string) (match.ResultSet, error) {
	u := c.origin + "/search.php?q=" + url.QueryEscape(query)
	c.logger.DebugContext(ctx, "searching registry", "query", query)

	body, err := c.fetch(ctx, u, searchResultsPresent)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	rows, err := parseSearchRows(body)
	if err != nil {
		return nil, fmt.Errorf("parse search results for %q: %w", query, err)
	}
	return &staticResults{rows: rows}, nil
}

// searchResultsPresent keeps empty result pages out of the cache: MyNeta
// intermittently serves a blank table while its index catches up.
func searchResultsPresent(body []byte) bool {
	return bytes.Contains(body, []byte("<table"))
}

// parseSearchRows extracts candidate rows from the search results table.
// Rows without enough cells or without a profile link are skipped.
func parseSearchRows(body []byte) ([]match.Row, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var rows []match.Row
	doc.Find("table.w3-table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		link := tr.Find("a").First()
		if cells.Length() < 4 || link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		rows = append(rows, match.Row{
			DisplayName:      strings.TrimSpace(link.Text()),
			ConstituencyText: strings.TrimSpace(cells.Eq(2).Text()),
			ElectionLabel:    strings.TrimSpace(cells.Eq(3).Text()),
			URL:              href,
		})
	})
	return rows, nil
}

// FetchProfile retrieves a linked profile page and pulls out the raw text
// of each field of interest. Missing sections come back as empty strings;
// the extractors treat those as absent data.
func (c *Client) FetchProfile(ctx context.Context, profileURL string) (extract.ProfileText, error) {
	c.logger.InfoContext(ctx, "fetching profile", "url", profileURL)

	body, err := c.fetch(ctx, profileURL, nil)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return extract.ProfileText{}, fmt.Errorf("profile %s: %w", profileURL, record.ErrPageNotFound)
		}
		return extract.ProfileText{}, fmt.Errorf("fetch profile %s: %w", profileURL, err)
	}
	return parseProfile(body)
}

func parseProfile(body []byte) (extract.ProfileText, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return extract.ProfileText{}, err
	}

	var pt extract.ProfileText

	doc.Find("h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.TrimSpace(h.Text()) == "Educational Details" {
			pt.Education = strings.TrimSpace(h.Parent().Text())
			return false
		}
		return true
	})

	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if strings.Contains(p.Text(), "Self Profession:") {
			pt.Profession = strings.TrimSpace(p.Text())
			return false
		}
		return true
	})

	pt.Assets = labeledCell(doc, "Assets:")
	pt.Liabilities = labeledCell(doc, "Liabilities:")

	pt.Income = strings.TrimSpace(
		doc.Find("table#income_tax tbody tr td").Eq(3).Find("b").First().Text())

	pt.Criminal = criminalSnippet(doc)

	return pt, nil
}

// labeledCell finds a td whose text is exactly the label and returns the
// text of its following sibling cell.
func labeledCell(doc *goquery.Document, label string) string {
	var out string
	doc.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		if strings.TrimSpace(td.Text()) == label {
			out = strings.TrimSpace(td.Next().Text())
			return false
		}
		return true
	})
	return out
}

// criminalSnippet returns the first text line mentioning criminal cases.
// The crime-o-meter markup varies between page generations, so this works
// off rendered text rather than structure.
func criminalSnippet(doc *goquery.Document) string {
	for line := range strings.Lines(doc.Text()) {
		if strings.Contains(strings.ToLower(line), "criminal case") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func (c *Client) fetch(ctx context.Context, u string, validator httpcache.ResponseValidator) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	return httpcache.FetchURLWithValidator(ctx, c.cache, c.httpClient, req, c.logger, validator)
}
