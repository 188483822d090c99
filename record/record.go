// Package record defines the common types shared across the linkage and
// enrichment pipeline.
package record

import "errors"

// Common errors returned by registry packages.
var (
	ErrNoMatch       = errors.New("no matching profile found")
	ErrPageNotFound  = errors.New("page not found")
	ErrRateLimited   = errors.New("rate limited")
	ErrEmptyResponse = errors.New("empty provider response")
)

// Candidate is one affidavit record scraped from the election registry.
// ProfileURL is filled in by the matcher; every other field is set once
// during scraping and never mutated.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Candidate struct {
	Name         string
	Party        string
	Status       string
	State        string
	Constituency string
	GuardianName string // "Father/Husband" column
	Address      string
	Gender       string
	Age          string
	Year         string // 4-digit election year, may be empty
	ProfileURL   string // linked MyNeta profile, empty until matched
}

// Financials holds the structured fields extracted from a linked profile.
// Name is the join key back to Candidate.
type Financials struct {
	Name          string
	Education     string
	Profession    string
	NetWorth      int
	NetWorthUnit  string
	Income        int
	IncomeUnit    string
	CriminalCases int
}

// AddressInfo is the resolved city/pincode for a candidate address.
// Pincode is either exactly six decimal digits or "N/A"; the resolver's
// revalidation pass enforces this.
type AddressInfo struct {
	City    string
	Pincode string
}
