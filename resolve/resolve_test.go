package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/votelens/netalink/record"
)

// scriptedProvider returns canned responses (or errors) per call.
type scriptedProvider struct {
	responses []string
	errs      []error
	prompts   []string
}

func (p *scriptedProvider) Complete(_ context.Context, prompt string) (string, error) {
	i := len(p.prompts)
	p.prompts = append(p.prompts, prompt)
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return "", record.ErrEmptyResponse
}

func newResolver(p CompletionProvider, opts ...Option) *Resolver {
	base := []Option{WithBatchDelay(0)}
	return New(p, append(base, opts...)...)
}

func TestResolveHappyPath(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`[{"city":"Koilwar","pincode":"802121"},{"city":"Danapur","pincode":"801503"}]`,
	}}
	r := newResolver(p)

	got := r.Resolve(context.Background(), []string{
		"Vill Koilwar, Bhojpur 802121",
		"Ward 3, Danapur, Patna 801503",
	})
	want := []record.AddressInfo{
		{City: "Koilwar", Pincode: "802121"},
		{City: "Danapur", Pincode: "801503"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveProviderOutageFallsBack(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("service unavailable")}}
	r := newResolver(p)

	got := r.Resolve(context.Background(), []string{"Vill Koilwar, Bhojpur 802121"})
	want := []record.AddressInfo{{City: "N/A", Pincode: "802121"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveNoPincodeInAddress(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("down")}}
	r := newResolver(p)

	got := r.Resolve(context.Background(), []string{"Somewhere without a code"})
	want := []record.AddressInfo{{City: "N/A", Pincode: "N/A"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveToleratesProseAroundArray(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		"Sure! Here is the JSON you asked for:\n" +
			`[{"city":"Arrah","pincode":"802301"}]` +
			"\nLet me know if you need anything else.",
	}}
	r := newResolver(p)

	got := r.Resolve(context.Background(), []string{"Arrah town 802301"})
	want := []record.AddressInfo{{City: "Arrah", Pincode: "802301"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveGarbageResponseFallsBack(t *testing.T) {
	p := &scriptedProvider{responses: []string{"I cannot help with that."}}
	r := newResolver(p)

	got := r.Resolve(context.Background(), []string{"Ward 9, Buxar 802101"})
	want := []record.AddressInfo{{City: "N/A", Pincode: "802101"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveShortResponsePadded(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`[{"city":"Arrah","pincode":"802301"}]`,
	}}
	r := newResolver(p)

	got := r.Resolve(context.Background(), []string{"Arrah 802301", "No code here"})
	want := []record.AddressInfo{
		{City: "Arrah", Pincode: "802301"},
		{City: "N/A", Pincode: "N/A"}, // padded, then revalidated against the address
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveLongResponseTruncated(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`[{"city":"A","pincode":"111111"},{"city":"B","pincode":"222222"},{"city":"C","pincode":"333333"}]`,
	}}
	r := newResolver(p)

	got := r.Resolve(context.Background(), []string{"a 111111", "b 222222"})
	if len(got) != 2 {
		t.Fatalf("Resolve returned %d entries, want 2", len(got))
	}
	if got[1].City != "B" {
		t.Errorf("second entry = %+v, want city B", got[1])
	}
}

func TestResolveRevalidatesBadPincode(t *testing.T) {
	// Provider hallucinates a 5-digit pincode; revalidation re-derives it
	// from the address text.
	p := &scriptedProvider{responses: []string{
		`[{"city":"Koilwar","pincode":"80212"}]`,
	}}
	r := newResolver(p)

	got := r.Resolve(context.Background(), []string{"Koilwar bazar 802121"})
	want := []record.AddressInfo{{City: "Koilwar", Pincode: "802121"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveBatchingPreservesOrder(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`[{"city":"A","pincode":"111111"},{"city":"B","pincode":"222222"}]`,
		`[{"city":"C","pincode":"333333"}]`,
	}}
	r := newResolver(p, WithBatchSize(2))

	got := r.Resolve(context.Background(), []string{"a 111111", "b 222222", "c 333333"})
	want := []record.AddressInfo{
		{City: "A", Pincode: "111111"},
		{City: "B", Pincode: "222222"},
		{City: "C", Pincode: "333333"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
	if len(p.prompts) != 2 {
		t.Errorf("provider called %d times, want 2", len(p.prompts))
	}
	if !strings.Contains(p.prompts[1], "c 333333") {
		t.Errorf("second prompt missing third address:\n%s", p.prompts[1])
	}
}

func TestBuildPromptDemandsJSONOnly(t *testing.T) {
	prompt := buildPrompt([]string{"addr one", "addr two"})
	for _, want := range []string{"ONLY the JSON array", "addr one", "addr two", `"pincode"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
