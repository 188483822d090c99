// Package resolve enriches raw address text with city and pincode using a
// text-completion provider, falling back to regex extraction whenever the
// provider response cannot be trusted.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/votelens/netalink/record"
)

// notAvailable marks a field the resolver could not determine.
const notAvailable = "N/A"

var pincodeRun = regexp.MustCompile(`\b\d{6}\b`)
var pincodeExact = regexp.MustCompile(`^\d{6}$`)

// CompletionProvider returns a text response for a prompt. The response
// has no enforced schema; callers must parse defensively.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Resolver batches addresses through a completion provider.
type Resolver struct {
	provider   CompletionProvider
	logger     *slog.Logger
	batchSize  int
	batchDelay time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithBatchSize sets how many addresses go into one prompt.
func WithBatchSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between provider calls. It throttles
// request rate only; correctness does not depend on it.
func WithBatchDelay(d time.Duration) Option {
	return func(r *Resolver) { r.batchDelay = d }
}

// New creates a Resolver over the given completion provider.
func New(provider CompletionProvider, opts ...Option) *Resolver {
	r := &Resolver{
		provider:   provider,
		logger:     slog.Default(),
		batchSize:  20,
		batchDelay: 4 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps every address to a city/pincode pair, in input order. No
// provider failure aborts the run; affected batches degrade to per-address
// regex extraction. A final pass re-derives any pincode that is not
// exactly six digits.
func (r *Resolver) Resolve(ctx context.Context, addresses []string) []record.AddressInfo {
	results := make([]record.AddressInfo, 0, len(addresses))

	for start := 0; start < len(addresses); start += r.batchSize {
		end := min(start+r.batchSize, len(addresses))
		batch := addresses[start:end]
		r.logger.InfoContext(ctx, "resolving address batch",
			"batch", start/r.batchSize+1, "size", len(batch))

		results = append(results, r.resolveBatch(ctx, batch)...)

		if end < len(addresses) && !sleep(ctx, r.batchDelay) {
			// Canceled mid-run: degrade the remaining addresses.
			for _, addr := range addresses[end:] {
				results = append(results, fallback(addr))
			}
			break
		}
	}

	// Revalidation pass: a pincode is six digits or it is nothing.
	for i := range results {
		if !pincodeExact.MatchString(results[i].Pincode) {
			results[i].Pincode = pincodeFromAddress(addresses[i])
		}
	}
	return results
}

// resolveBatch runs one prompt through the provider and normalizes the
// outcome to exactly one entry per input address.
func (r *Resolver) resolveBatch(ctx context.Context, batch []string) []record.AddressInfo {
	raw, err := r.provider.Complete(ctx, buildPrompt(batch))
	if err != nil {
		r.logger.WarnContext(ctx, "completion provider failed, using regex fallback",
			"size", len(batch), "error", err)
		return fallbackBatch(batch)
	}

	parsed, err := parseArray(raw)
	if err != nil {
		r.logger.WarnContext(ctx, "unparseable provider response, using regex fallback",
			"size", len(batch), "error", err)
		return fallbackBatch(batch)
	}

	// Normalize length: pad with placeholders, or truncate.
	for len(parsed) < len(batch) {
		parsed = append(parsed, record.AddressInfo{City: notAvailable, Pincode: notAvailable})
	}
	parsed = parsed[:len(batch)]

	for i := range parsed {
		if parsed[i].City == "" {
			parsed[i].City = notAvailable
		}
	}
	return parsed
}

// buildPrompt composes one request for a batch of addresses. The provider
// is told to return only a JSON array, though the parser tolerates extra
// prose anyway.
func buildPrompt(batch []string) string {
	var b strings.Builder
	b.WriteString("Extract the City (Tehsil) and 6-digit Pincode for these Indian addresses.\n")
	b.WriteString(`Return a JSON array of objects with keys "city" and "pincode", one object per address in the same order as input.` + "\n")
	b.WriteString("Return ONLY the JSON array and nothing else.\n")
	b.WriteString(`Example: [{"city":"Koilwar","pincode":"802121"}]` + "\n")
	b.WriteString("Addresses:\n")
	for i, addr := range batch {
		fmt.Fprintf(&b, "%d. %s\n", i+1, addr)
	}
	return b.String()
}

// parseArray extracts the JSON array from a provider response that may be
// wrapped in explanatory text: everything between the first '[' and the
// last ']' is taken as the payload.
func parseArray(raw string) ([]record.AddressInfo, error) {
	first := strings.IndexByte(raw, '[')
	last := strings.LastIndexByte(raw, ']')
	if first == -1 || last <= first {
		return nil, fmt.Errorf("no JSON array in response: %w", record.ErrEmptyResponse)
	}

	var entries []struct {
		City    string `json:"city"`
		Pincode string `json:"pincode"`
	}
	if err := json.Unmarshal([]byte(raw[first:last+1]), &entries); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	out := make([]record.AddressInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, record.AddressInfo{City: e.City, Pincode: e.Pincode})
	}
	return out, nil
}

func fallbackBatch(batch []string) []record.AddressInfo {
	out := make([]record.AddressInfo, 0, len(batch))
	for _, addr := range batch {
		out = append(out, fallback(addr))
	}
	return out
}

// fallback extracts what it can from the address text itself.
func fallback(addr string) record.AddressInfo {
	return record.AddressInfo{City: notAvailable, Pincode: pincodeFromAddress(addr)}
}

func pincodeFromAddress(addr string) string {
	if m := pincodeRun.FindString(addr); m != "" {
		return m
	}
	return notAvailable
}

func sleep(ctx context.Context, d time.Duration) bool {
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
