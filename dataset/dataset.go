// Package dataset persists each pipeline phase's table as CSV and
// implements the final join. Every phase writes its own file, so earlier
// outputs stay usable when a later phase dies.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/votelens/netalink/record"
)

// Column headers are part of the external interface; downstream consumers
// key on these exact names.
var candidateHeader = []string{
	"Name", "Party", "Status", "State", "Constituency", "Father/Husband",
	"Address", "Gender", "Age", "Year", "neta_link",
}

var financialsHeader = []string{
	"Name", "Education", "Profession", "Net_Worth", "Networth Unit",
	"Income", "Income Unit", "Criminal_Cases",
}

// ReadCandidates loads a candidates CSV. Columns are located by header
// name, so column order does not matter.
func ReadCandidates(path string) ([]record.Candidate, error) {
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]record.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, record.Candidate{
			Name:         get(row, "Name"),
			Party:        get(row, "Party"),
			Status:       get(row, "Status"),
			State:        get(row, "State"),
			Constituency: get(row, "Constituency"),
			GuardianName: get(row, "Father/Husband"),
			Address:      get(row, "Address"),
			Gender:       get(row, "Gender"),
			Age:          get(row, "Age"),
			Year:         get(row, "Year"),
			ProfileURL:   get(row, "neta_link"),
		})
	}
	return out, nil
}

// WriteCandidates writes a candidates CSV in input order.
func WriteCandidates(path string, candidates []record.Candidate) error {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, candidateRow(c))
	}
	return writeTable(path, candidateHeader, rows)
}

// ReadFinancials loads an extracted-financials CSV. Malformed numeric
// cells degrade to zero rather than failing the load.
func ReadFinancials(path string) ([]record.Financials, error) {
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]record.Financials, 0, len(rows))
	for _, row := range rows {
		out = append(out, record.Financials{
			Name:          get(row, "Name"),
			Education:     get(row, "Education"),
			Profession:    get(row, "Profession"),
			NetWorth:      atoiOrZero(get(row, "Net_Worth")),
			NetWorthUnit:  get(row, "Networth Unit"),
			Income:        atoiOrZero(get(row, "Income")),
			IncomeUnit:    get(row, "Income Unit"),
			CriminalCases: atoiOrZero(get(row, "Criminal_Cases")),
		})
	}
	return out, nil
}

// WriteFinancials writes an extracted-financials CSV in input order.
func WriteFinancials(path string, fins []record.Financials) error {
	rows := make([][]string, 0, len(fins))
	for _, f := range fins {
		rows = append(rows, []string{
			f.Name, f.Education, f.Profession,
			strconv.Itoa(f.NetWorth), f.NetWorthUnit,
			strconv.Itoa(f.Income), f.IncomeUnit,
			strconv.Itoa(f.CriminalCases),
		})
	}
	return writeTable(path, financialsHeader, rows)
}

// WriteEnriched writes the candidates table with City and Pincode columns
// appended. The two slices must be index-aligned.
func WriteEnriched(path string, candidates []record.Candidate, addrs []record.AddressInfo) error {
	if len(candidates) != len(addrs) {
		return fmt.Errorf("candidate/address length mismatch: %d vs %d", len(candidates), len(addrs))
	}
	header := append(append([]string{}, candidateHeader...), "City", "Pincode")
	rows := make([][]string, 0, len(candidates))
	for i, c := range candidates {
		rows = append(rows, append(candidateRow(c), addrs[i].City, addrs[i].Pincode))
	}
	return writeTable(path, header, rows)
}

// MergedRow is one output row of the join: a candidate plus its
// financials, when any matched.
type MergedRow struct {
	Candidate  record.Candidate
	Financials *record.Financials // nil when no right-side row matched
}

// Join left-outer-joins candidates with financials on exact Name equality.
// Output order equals candidate input order. When the right side carries
// duplicate Names, the first occurrence wins; rows never fan out.
func Join(candidates []record.Candidate, fins []record.Financials) []MergedRow {
	byName := make(map[string]*record.Financials, len(fins))
	for i := range fins {
		if _, ok := byName[fins[i].Name]; !ok {
			byName[fins[i].Name] = &fins[i]
		}
	}

	out := make([]MergedRow, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, MergedRow{Candidate: c, Financials: byName[c.Name]})
	}
	return out
}

// WriteMerged writes the joined table: the union of both column sets, one
// row per candidate. Unmatched rows leave the financial cells empty.
func WriteMerged(path string, merged []MergedRow) error {
	header := append(append([]string{}, candidateHeader...), financialsHeader[1:]...)
	rows := make([][]string, 0, len(merged))
	for _, m := range merged {
		row := candidateRow(m.Candidate)
		if f := m.Financials; f != nil {
			row = append(row,
				f.Education, f.Profession,
				strconv.Itoa(f.NetWorth), f.NetWorthUnit,
				strconv.Itoa(f.Income), f.IncomeUnit,
				strconv.Itoa(f.CriminalCases),
			)
		} else {
			row = append(row, "", "", "", "", "", "", "")
		}
		rows = append(rows, row)
	}
	return writeTable(path, header, rows)
}

func candidateRow(c record.Candidate) []string {
	return []string{
		c.Name, c.Party, c.Status, c.State, c.Constituency, c.GuardianName,
		c.Address, c.Gender, c.Age, c.Year, c.ProfileURL,
	}
}

func readTable(path string) (rows [][]string, idx map[string]int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only close

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, map[string]int{}, nil
	}

	idx = make(map[string]int, len(all[0]))
	for i, col := range all[0] {
		idx[col] = i
	}
	return all[1:], idx, nil
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
