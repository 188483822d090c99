// Package extract parses the semi-structured field text found on affidavit
// profile pages into typed values. Every function degrades to a sentinel
// (zero, empty string) on malformed input rather than returning an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var digitRun = regexp.MustCompile(`\d+`)

// Amount extracts the raw integer from free text like
// "Rs 2,60,000 ~2 Lacs+" (260000) or "Nil" (0).
//
// Anything after a '~' is an approximate alternate rendering and is
// ignored; the first digit run on the left-hand side wins.
func Amount(text string) int {
	if text == "" || strings.Contains(strings.ToLower(text), "nil") {
		return 0
	}
	if i := strings.IndexByte(text, '~'); i >= 0 {
		text = text[:i]
	}
	cleaned := strings.ReplaceAll(text, ",", "")
	m := digitRun.FindString(cleaned)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// FormatUnit renders a rupee amount in Indian-style units using integer
// floor division: 60000 -> "60 Thousand", 800000 -> "8 Lakh",
// 15000000 -> "1 Crore". Amounts <= 0 render as "0".
func FormatUnit(amount int) string {
	switch {
	case amount <= 0:
		return "0"
	case amount >= 10_000_000:
		return strconv.Itoa(amount/10_000_000) + " Crore"
	case amount >= 100_000:
		return strconv.Itoa(amount/100_000) + " Lakh"
	case amount >= 1_000:
		return strconv.Itoa(amount/1_000) + " Thousand"
	default:
		return strconv.Itoa(amount)
	}
}

// EducationCategory pulls the short education category out of a raw
// details block, e.g. "... Category: Post Graduate (Tech) ..." ->
// "Post Graduate". Returns "" when no "Category:" marker is present.
func EducationCategory(raw string) string {
	if raw == "" {
		return ""
	}
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
	_, after, found := strings.Cut(text, "Category:")
	if !found {
		return ""
	}
	text = strings.TrimSpace(after)

	// Truncate at the delimiters that start the long-form description.
	cut := len(text)
	for _, d := range []string{`"`, "(", " from ", "\n"} {
		if i := strings.Index(text, d); i >= 0 && i < cut {
			cut = i
		}
	}
	text = strings.TrimSpace(text[:cut])

	tokens := strings.Fields(text)
	switch {
	case len(tokens) == 0:
		return ""
	case len(tokens) == 1:
		return tokens[0]
	case strings.EqualFold(tokens[0], tokens[1]):
		// Pages sometimes repeat the category, e.g. "Literate Literate".
		return tokens[0]
	default:
		// Two tokens cover categories like "Post Graduate" and
		// "Graduate Professional"; original casing keeps "10th Pass" intact.
		return tokens[0] + " " + tokens[1]
	}
}

// Profession extracts only the self profession from text that may carry
// both self- and spouse-profession fields.
func Profession(raw string) string {
	if raw == "" {
		return ""
	}
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
	if i := strings.Index(text, "Self Profession:"); i >= 0 {
		text = text[i+len("Self Profession:"):]
	}
	if i := strings.Index(text, "Spouse Profession:"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// CriminalCases counts pending cases from a crime-o-meter snippet:
// "No criminal cases" -> 0, "3 criminal cases" -> 3. Text with neither a
// "no criminal" phrase nor a number also yields 0; missing data and a
// genuine zero are indistinguishable here.
func CriminalCases(text string) int {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "no criminal") {
		return 0
	}
	m := digitRun.FindString(lower)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// Income extracts the total income figure from the income-tax cell. Unlike
// Amount, every digit run is concatenated after comma removal, matching
// how the figure is split across markup on the source pages.
func Income(raw string) int {
	cleaned := strings.ReplaceAll(raw, ",", "")
	runs := digitRun.FindAllString(cleaned, -1)
	if len(runs) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.Join(runs, ""))
	if err != nil {
		return 0
	}
	return n
}
