package roster

import (
	"context"
	"slices"

	"github.com/sells-group/advocate-cli/internal/advocate"
)

// seedRecords is the built-in roster used when no other source is reachable.
var seedRecords = []advocate.Record{
	{Name: "Abdul Azeez", EnrollmentNumber: "AP/653/2022", Jurisdiction: "Andhra Pradesh"},
	{Name: "K. Srinivasa Rao", EnrollmentNumber: "AP/03207/2015", Jurisdiction: "Andhra Pradesh"},
	{Name: "Lakshmi Narayana Reddy", EnrollmentNumber: "RAP/1657/2002", Jurisdiction: "Andhra Pradesh"},
	{Name: "Meera Krishnan", EnrollmentNumber: "2520/2004", Jurisdiction: "Kerala"},
	{Name: "Syed Imran Ali", EnrollmentNumber: "TS/1123/2018", Jurisdiction: "Telangana"},
	{Name: "Venkata Ramana Murthy", EnrollmentNumber: "APS/2291/2011", Jurisdiction: "Andhra Pradesh"},
	{Name: "Padmavathi Devi", EnrollmentNumber: "AP/1874/2009", Jurisdiction: "Andhra Pradesh"},
	{Name: "Ravi Shankar Prasad", EnrollmentNumber: "KA/4410/2016", Jurisdiction: "Karnataka"},
	{Name: "Anitha Kumari", EnrollmentNumber: "TS/0982/2020", Jurisdiction: "Telangana"},
	{Name: "Mohammed Rafiq", EnrollmentNumber: "APE/377/2019", Jurisdiction: "Andhra Pradesh"},
	{Name: "Suresh Babu Naidu", EnrollmentNumber: "AP/5120/2013", Jurisdiction: "Andhra Pradesh"},
	{Name: "Priya Sharma", Jurisdiction: "Delhi"},
}

// SeedSource serves the built-in roster.
type SeedSource struct{}

// Name implements advocate.Source.
func (SeedSource) Name() string { return "seed" }

// Load implements advocate.Source. It returns a fresh copy on every call.
func (SeedSource) Load(context.Context) ([]advocate.Record, error) {
	return slices.Clone(seedRecords), nil
}
