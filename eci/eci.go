// Package eci fetches and parses the election commission's affidavit
// portal: the candidate list for a constituency, and the per-candidate
// detail pages that carry guardian, address, and filing-year data.
package eci

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/votelens/netalink/auth"
	"github.com/votelens/netalink/httpcache"
	"github.com/votelens/netalink/record"
)

// Origin is the affidavit portal origin; candidate detail links resolve
// against it.
const Origin = "https://affidavit.eci.gov.in"

// Client handles affidavit portal requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	origin     string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpcache.Cacher
	logger  *slog.Logger
	origin  string
	cookies map[string]string
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithOrigin overrides the portal origin, which tests point at a local
// fixture server.
func WithOrigin(origin string) Option {
	return func(c *config) { c.origin = origin }
}

// WithCookies seeds the session jar. The portal issues ci_session and
// csrf_cookie_name on first visit; reusing a browser's copy skips the
// bootstrap redirect.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// New creates an affidavit portal client. Like the MyNeta client it holds
// one session handle for the whole run.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), origin: Origin}
	for _, opt := range opts {
		opt(cfg)
	}

	u, err := url.Parse(cfg.origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	jar, err := auth.NewCookieJar(u.Hostname(), cfg.cookies)
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

var (
	ordinalPrefix = regexp.MustCompile(`^\s*\d+\.\s*`)
	electionYear  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// CleanName strips the list ordinal the portal prepends to each card
// heading ("1. Ram Kumar" becomes "Ram Kumar").
func CleanName(raw string) string {
	return strings.TrimSpace(ordinalPrefix.ReplaceAllString(raw, ""))
}

// YearFrom returns the first 4-digit year in text, or "" if none.
func YearFrom(text string) string {
	return electionYear.FindString(text)
}

// Candidates fetches a candidate list page and returns one record per
// card, following each card's detail link for the fields the list page
// omits. A failed detail fetch degrades to a partial record rather than
// failing the run.
func (c *Client) Candidates(ctx context.Context, listURL string) ([]record.Candidate, error) {
	c.logger.InfoContext(ctx, "fetching candidate list", "url", listURL)

	body, err := c.fetch(ctx, listURL, candidateCardsPresent)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate list %s: %w", listURL, err)
	}

	cards, err := parseCards(body)
	if err != nil {
		return nil, fmt.Errorf("parse candidate list %s: %w", listURL, err)
	}

	candidates := make([]record.Candidate, 0, len(cards))
	for _, card := range cards {
		cand := card.candidate
		if card.detailURL != "" {
			detail, err := c.fetchDetail(ctx, listURL, card.detailURL)
			if err != nil {
				c.logger.WarnContext(ctx, "candidate detail fetch failed",
					"name", cand.Name, "error", err)
			} else {
				cand.GuardianName = detail.GuardianName
				cand.Address = detail.Address
				cand.Gender = detail.Gender
				cand.Age = detail.Age
				cand.Year = detail.Year
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// candidateCardsPresent keeps session-bootstrap interstitials out of the
// cache; a real list page always carries card headings.
func candidateCardsPresent(body []byte) bool {
	return bytes.Contains(body, []byte("bg-blu"))
}

type cardEntry struct {
	candidate record.Candidate
	detailURL string
}

// parseCards extracts one entry per candidate card. Each card is a table
// cell headed by an h4.bg-blu name, with labeled paragraphs below and a
// "View more" link to the detail page.
func parseCards(body []byte) ([]cardEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var cards []cardEntry
	doc.Find("h4.bg-blu").Each(func(_ int, h *goquery.Selection) {
		td := h.Closest("td")
		if td.Length() == 0 {
			return
		}
		entry := cardEntry{candidate: record.Candidate{
			Name:         CleanName(h.Text()),
			Party:        cardLabel(td, "Party :"),
			Status:       cardLabel(td, "Status :"),
			State:        cardLabel(td, "State :"),
			Constituency: cardLabel(td, "Constituency :"),
		}}
		td.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if strings.Contains(a.Text(), "View more") {
				entry.detailURL, _ = a.Attr("href")
				return false
			}
			return true
		})
		cards = append(cards, entry)
	})
	return cards, nil
}

// cardLabel finds the paragraph whose <strong> prefix equals label and
// returns the remaining text.
func cardLabel(td *goquery.Selection, label string) string {
	var out string
	td.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if strings.TrimSpace(p.Find("strong").First().Text()) == label {
			out = strings.TrimSpace(strings.Replace(p.Text(), label, "", 1))
			return false
		}
		return true
	})
	return out
}

// detailFields are the per-candidate fields only the detail page carries.
type detailFields struct {
	GuardianName string
	Address      string
	Gender       string
	Age          string
	Year         string
}

func (c *Client) fetchDetail(ctx context.Context, base, href string) (detailFields, error) {
	u, err := resolveURL(base, href)
	if err != nil {
		return detailFields{}, fmt.Errorf("resolve detail link %q: %w", href, err)
	}
	c.logger.DebugContext(ctx, "fetching candidate detail", "url", u)

	body, err := c.fetch(ctx, u, nil)
	if err != nil {
		return detailFields{}, err
	}
	return parseDetail(body)
}

// parseDetail pulls the labeled form groups off a candidate detail page.
// The guardian label varies ("Father Name:", "Father/Husband:"), so it
// matches on the "Father" substring; the others are exact.
func parseDetail(body []byte) (detailFields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return detailFields{}, err
	}

	d := detailFields{
		GuardianName: formGroupValue(doc, func(label string) bool {
			return strings.Contains(label, "Father")
		}),
		Address: formGroupValue(doc, func(label string) bool {
			return label == "Address:"
		}),
		Gender: formGroupValue(doc, func(label string) bool {
			return label == "Gender:"
		}),
		Age: formGroupValue(doc, func(label string) bool {
			return label == "Age:"
		}),
	}

	doc.Find("div.row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if strings.TrimSpace(row.Find("strong").First().Text()) != "Application Uploaded:" {
			return true
		}
		uploaded := row.Find("div.col-sm-6").Eq(1).Find("p").First().Text()
		d.Year = YearFrom(uploaded)
		return false
	})

	return d, nil
}

// formGroupValue returns the value column of the first form group whose
// label paragraph satisfies match.
func formGroupValue(doc *goquery.Document, match func(label string) bool) string {
	var out string
	doc.Find("div.form-group").EachWithBreak(func(_ int, fg *goquery.Selection) bool {
		label := strings.TrimSpace(fg.Find("p").First().Text())
		if !match(label) {
			return true
		}
		out = strings.TrimSpace(fg.Find("div.col-sm-6").First().Find("p").First().Text())
		return false
	})
	return out
}

func resolveURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(h).String(), nil
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
