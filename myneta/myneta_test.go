package myneta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/votelens/netalink/extract"
	"github.com/votelens/netalink/match"
)

const searchPage = `<html><body>
<table class="w3-table">
<tbody>
<tr><td>1</td><td><a href="/bihar2020/candidate.php?candidate_id=123">Ram Kumar Singh</a></td>
<td>PATNA SAHIB</td><td>Bihar 2020 General</td></tr>
<tr><td>2</td><td><a href="/up2017/candidate.php?candidate_id=456">Ram Kumar</a></td>
<td>LUCKNOW</td><td>UP 2017 Assembly</td></tr>
<tr><td colspan="2">advertisement</td></tr>
<tr><td>3</td><td>no link here</td><td>GAYA</td><td>2019</td></tr>
</tbody>
</table>
</body></html>`

const profilePage = `<html><body>
<div><h3>Educational Details</h3>
Category: Post Graduate (M.A. Political Science) from Patna University
</div>
<p><b>Self Profession:</b> Farmer <b>Spouse Profession:</b> Teacher</p>
<table><tr><td>Assets:</td><td>Rs 2,60,000 ~2 Lacs+</td></tr>
<tr><td>Liabilities:</td><td>Rs 60,000 ~60 Thou+</td></tr></table>
<table id="income_tax"><tbody>
<tr><td>1</td><td>self</td><td>2019</td><td><b>Rs 70,067</b></td></tr>
</tbody></table>
<div class="crime-o-meter"><span>3 criminal cases pending</span></div>
</body></html>`

func TestParseSearchRows(t *testing.T) {
	rows, err := parseSearchRows([]byte(searchPage))
	if err != nil {
		t.Fatalf("parseSearchRows: %v", err)
	}
	want := []match.Row{
		{
			DisplayName:      "Ram Kumar Singh",
			ConstituencyText: "PATNA SAHIB",
			ElectionLabel:    "Bihar 2020 General",
			URL:              "/bihar2020/candidate.php?candidate_id=123",
		},
		{
			DisplayName:      "Ram Kumar",
			ConstituencyText: "LUCKNOW",
			ElectionLabel:    "UP 2017 Assembly",
			URL:              "/up2017/candidate.php?candidate_id=456",
		},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSearchRowsEmptyPage(t *testing.T) {
	rows, err := parseSearchRows([]byte("<html><body>No results</body></html>"))
	if err != nil {
		t.Fatalf("parseSearchRows: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows from empty page, want 0", len(rows))
	}
}

func TestParseProfile(t *testing.T) {
	pt, err := parseProfile([]byte(profilePage))
	if err != nil {
		t.Fatalf("parseProfile: %v", err)
	}

	if got := extract.EducationCategory(pt.Education); got != "Post Graduate" {
		t.Errorf("education category = %q (raw %q)", got, pt.Education)
	}
	if got := extract.Profession(pt.Profession); got != "Farmer" {
		t.Errorf("profession = %q (raw %q)", got, pt.Profession)
	}
	if got := extract.Amount(pt.Assets); got != 260000 {
		t.Errorf("assets = %d (raw %q)", got, pt.Assets)
	}
	if got := extract.Amount(pt.Liabilities); got != 60000 {
		t.Errorf("liabilities = %d (raw %q)", got, pt.Liabilities)
	}
	if got := extract.Income(pt.Income); got != 70067 {
		t.Errorf("income = %d (raw %q)", got, pt.Income)
	}
	if got := extract.CriminalCases(pt.Criminal); got != 3 {
		t.Errorf("criminal cases = %d (raw %q)", got, pt.Criminal)
	}
}

func TestParseProfileMissingSections(t *testing.T) {
	pt, err := parseProfile([]byte("<html><body><p>sparse page</p></body></html>"))
	if err != nil {
		t.Fatalf("parseProfile: %v", err)
	}
	want := extract.ProfileText{}
	if diff := cmp.Diff(want, pt); diff != "" {
		t.Errorf("sparse page should yield empty fields (-want +got):\n%s", diff)
	}
}

func TestSearchAgainstFixtureServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.php" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("q"); got != "Ram Kumar" {
			t.Errorf("query = %q, want %q", got, "Ram Kumar")
		}
		_, _ = w.Write([]byte(searchPage)) //nolint:errcheck // test server
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithOrigin(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	rs, err := c.Search(context.Background(), "Ram Kumar")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	rows, err := rs.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows, want 2", len(rows))
	}
}
