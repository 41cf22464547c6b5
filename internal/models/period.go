package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PeriodKind distinguishes the two period shapes the remote sources publish:
// Receita Federal folders are year-month, PGFN folders are year-quarter.
type PeriodKind int

const (
	PeriodMonth PeriodKind = iota
	PeriodQuarter
)

// Period is an immutable time bucket identifying one batch of remote data.
type Period struct {
	Kind    PeriodKind
	Year    int
	Month   time.Month
	Quarter int
}

var monthPeriodPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

func MonthPeriod(year int, month time.Month) Period {
	return Period{Kind: PeriodMonth, Year: year, Month: month}
}

func QuarterPeriod(year, quarter int) Period {
	return Period{Kind: PeriodQuarter, Year: year, Quarter: quarter}
}

// ParseMonthPeriod parses a "YYYY-MM" folder name.
func ParseMonthPeriod(s string) (Period, error) {
	m := monthPeriodPattern.FindStringSubmatch(strings.TrimSuffix(s, "/"))
	if m == nil {
		return Period{}, fmt.Errorf("invalid period %q: expected YYYY-MM", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid period %q: month out of range", s)
	}
	return MonthPeriod(year, time.Month(month)), nil
}

// String renders the period as it appears in storage paths: "2024-03" for
// months, "2024/2trimestre" for quarters.
func (p Period) String() string {
	if p.Kind == PeriodQuarter {
		return fmt.Sprintf("%d/%dtrimestre", p.Year, p.Quarter)
	}
	return fmt.Sprintf("%d-%02d", p.Year, int(p.Month))
}

// Ordinal maps the period onto a single sortable integer.
func (p Period) Ordinal() int {
	if p.Kind == PeriodQuarter {
		return p.Year*12 + (p.Quarter-1)*3
	}
	return p.Year*12 + int(p.Month) - 1
}

func (p Period) Compare(other Period) int {
	return p.Ordinal() - other.Ordinal()
}

// Window bounds discovery to [Start, End] inclusive.
type Window struct {
	Start Period
	End   Period
}

func (w Window) Contains(p Period) bool {
	return w.Start.Compare(p) <= 0 && p.Compare(w.End) <= 0
}

// RemoteFile is one downloadable archive or payload, already resolved to a
// concrete URL and a destination prefix under the logical source's base path.
type RemoteFile struct {
	Name string
	URL  string

	// DestPrefix is the storage prefix (relative to the source base path)
	// the extracted tables land under, e.g. "2024-03" or "2024/2trimestre/FGTS".
	DestPrefix string

	// MarkerStem names the completion marker. Empty means the bare
	// ".extracted" sentinel used by the PGFN layout.
	MarkerStem string
}
