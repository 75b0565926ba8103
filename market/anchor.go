package market

import (
	"fmt"
	"strings"
	"time"
)

// AnchorType selects the reference instant for the anchored VWAP.
type AnchorType int

const (
	AnchorSession AnchorType = iota
	AnchorWeekly
	AnchorMonthly
	AnchorCustom
)

func (a AnchorType) String() string {
	switch a {
	case AnchorWeekly:
		return "weekly"
	case AnchorMonthly:
		return "monthly"
	case AnchorCustom:
		return "custom"
	default:
		return "session"
	}
}

// ParseAnchorType 接受 session/weekly/monthly/custom。
func ParseAnchorType(v string) (AnchorType, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "session", "daily", "":
		return AnchorSession, nil
	case "weekly", "week":
		return AnchorWeekly, nil
	case "monthly", "month":
		return AnchorMonthly, nil
	case "custom":
		return AnchorCustom, nil
	}
	return AnchorSession, fmt.Errorf("unknown anchor type %q", v)
}

func (a AnchorType) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *AnchorType) UnmarshalText(b []byte) error {
	v, err := ParseAnchorType(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// AnchorStart returns the anchor instant in effect at ts.
// Session = local midnight, weekly = Monday midnight, monthly = the 1st at midnight.
// Custom returns the supplied instant unchanged.
func AnchorStart(kind AnchorType, ts time.Time, loc *time.Location, custom time.Time) time.Time {
	if kind == AnchorCustom {
		return custom
	}
	if loc == nil {
		loc = time.UTC
	}
	local := ts.In(loc)
	y, m, d := local.Date()
	switch kind {
	case AnchorWeekly:
		offset := (int(local.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case AnchorMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}
