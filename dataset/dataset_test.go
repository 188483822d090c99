package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/votelens/netalink/record"
)

func TestCandidatesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.csv")
	want := []record.Candidate{
		{
			Name: "Ram Kumar", Party: "IND", Status: "Contesting", State: "Bihar",
			Constituency: "Patna", GuardianName: "Shyam Kumar",
			Address: "Vill Koilwar, 802121", Gender: "Male", Age: "45", Year: "2020",
			ProfileURL: "https://www.myneta.info/candidate.php?id=123",
		},
		{Name: "Sita Devi", Constituency: "Gaya"},
	}

	if err := WriteCandidates(path, want); err != nil {
		t.Fatalf("WriteCandidates: %v", err)
	}
	got, err := ReadCandidates(path)
	if err != nil {
		t.Fatalf("ReadCandidates: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCandidatesReorderedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reordered.csv")
	csvData := "Year,Name,neta_link\n2020,Ram Kumar,https://example.com/p\n"
	if err := os.WriteFile(path, []byte(csvData), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ReadCandidates(path)
	if err != nil {
		t.Fatalf("ReadCandidates: %v", err)
	}
	want := []record.Candidate{{Name: "Ram Kumar", Year: "2020", ProfileURL: "https://example.com/p"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFinancialsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "financials.csv")
	want := []record.Financials{
		{
			Name: "Ram Kumar", Education: "Post Graduate", Profession: "Farmer",
			NetWorth: 200000, NetWorthUnit: "2 Lakh",
			Income: 70067, IncomeUnit: "70 Thousand", CriminalCases: 3,
		},
	}
	if err := WriteFinancials(path, want); err != nil {
		t.Fatalf("WriteFinancials: %v", err)
	}
	got, err := ReadFinancials(path)
	if err != nil {
		t.Fatalf("ReadFinancials: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinLeftOuter(t *testing.T) {
	candidates := []record.Candidate{
		{Name: "Ram Kumar", Constituency: "Patna"},
		{Name: "Unlinked Person", Constituency: "Gaya"},
	}
	fins := []record.Financials{
		{Name: "Ram Kumar", NetWorth: 200000},
		{Name: "Somebody Else", NetWorth: 1},
	}

	got := Join(candidates, fins)
	if len(got) != 2 {
		t.Fatalf("Join returned %d rows, want 2", len(got))
	}
	if got[0].Financials == nil || got[0].Financials.NetWorth != 200000 {
		t.Errorf("row 0 = %+v, want joined financials", got[0].Financials)
	}
	if got[1].Financials != nil {
		t.Errorf("row 1 financials = %+v, want nil for unmatched left row", got[1].Financials)
	}
}

func TestJoinDuplicateRightKeysFirstWins(t *testing.T) {
	candidates := []record.Candidate{{Name: "Ram Kumar"}}
	fins := []record.Financials{
		{Name: "Ram Kumar", NetWorth: 100},
		{Name: "Ram Kumar", NetWorth: 999},
	}

	got := Join(candidates, fins)
	if len(got) != 1 {
		t.Fatalf("Join returned %d rows, want 1 (no fan-out)", len(got))
	}
	if got[0].Financials.NetWorth != 100 {
		t.Errorf("NetWorth = %d, want first right-side occurrence (100)", got[0].Financials.NetWorth)
	}
}

func TestJoinExactNameNoNormalization(t *testing.T) {
	// Deliberate asymmetry vs. the fuzzy matching used upstream.
	candidates := []record.Candidate{{Name: "Ram Kumar"}}
	fins := []record.Financials{{Name: "ram kumar"}}

	got := Join(candidates, fins)
	if got[0].Financials != nil {
		t.Errorf("case-differing names joined; join must be exact")
	}
}

func TestWriteMergedUnmatchedCellsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merged.csv")
	merged := Join(
		[]record.Candidate{{Name: "Nobody Linked"}},
		nil,
	)
	if err := WriteMerged(path, merged); err != nil {
		t.Fatalf("WriteMerged: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Name,Party,Status,State,Constituency,Father/Husband,Address,Gender,Age,Year,neta_link," +
		"Education,Profession,Net_Worth,Networth Unit,Income,Income Unit,Criminal_Cases\n" +
		"Nobody Linked,,,,,,,,,,,,,,,,,\n"
	if string(data) != want {
		t.Errorf("merged CSV:\n%q\nwant:\n%q", data, want)
	}
}

func TestWriteEnriched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.csv")
	candidates := []record.Candidate{{Name: "Ram Kumar", Address: "Koilwar 802121"}}
	addrs := []record.AddressInfo{{City: "Koilwar", Pincode: "802121"}}

	if err := WriteEnriched(path, candidates, addrs); err != nil {
		t.Fatalf("WriteEnriched: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{"City,Pincode", "Koilwar,802121"} {
		if !strings.Contains(got, want) {
			t.Errorf("enriched CSV missing %q:\n%s", want, got)
		}
	}
}

func TestWriteEnrichedLengthMismatch(t *testing.T) {
	err := WriteEnriched(filepath.Join(t.TempDir(), "x.csv"),
		[]record.Candidate{{Name: "A"}}, nil)
	if err == nil {
		t.Error("WriteEnriched accepted mismatched lengths")
	}
}
