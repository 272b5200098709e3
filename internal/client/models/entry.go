// Package models defines the client-side view of sentiment entries and the
// transient form state used to create them.
package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/common"
)

// NoTeam is the team value the ledger reports when a submission had none.
const NoTeam = "undefined"

// Entry is one member's sentiment submission as read from the ledger.
type Entry struct {
	ID        int64
	Name      string
	EntryKey  string
	Team      string
	Timestamp int64 // unix seconds
	Creator   string

	IsVerified bool
	// DecryptedValue is only meaningful when IsVerified is true; it is zero
	// otherwise.
	DecryptedValue int
}

// EntryFromRecord maps a raw ledger record to an Entry. now supplies the
// fallback ID when the key carries no usable number.
func EntryFromRecord(key string, rec *gateway.EntryRecord, now time.Time) Entry {
	e := Entry{
		ID:         EntryID(key, now),
		Name:       rec.Name,
		EntryKey:   key,
		Team:       rec.Description,
		Timestamp:  rec.Timestamp,
		Creator:    rec.Creator,
		IsVerified: rec.IsVerified,
	}
	if rec.IsVerified {
		e.DecryptedValue = int(rec.DecryptedValue)
	}
	return e
}

// HasTeam reports whether the entry names a real team.
func (e Entry) HasTeam() bool {
	return e.Team != "" && e.Team != NoTeam
}

// EntryID derives the numeric id from an entry key of the form
// "sentiment-<n>". A key without a leading number, or whose number is zero,
// gets now in unix milliseconds instead.
func EntryID(key string, now time.Time) int64 {
	n, ok := ParseLeadingInt(strings.Replace(key, common.EntryKeyPrefix, "", 1))
	if !ok || n == 0 {
		return now.UnixMilli()
	}
	return n
}

// ParseMood reads a mood score the way a form field is read: leading
// integer digits, 0 when there are none.
func ParseMood(s string) int64 {
	n, _ := ParseLeadingInt(s)
	return n
}

// ParseLeadingInt parses the integer prefix of s: leading whitespace, an
// optional sign, an optional 0x prefix for hex, then digits up to the first
// non-digit. ok is false when no digit is found or the value overflows.
func ParseLeadingInt(s string) (n int64, ok bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base := int64(10)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	const limit = int64(1<<63 - 1)
	digits := 0
	for _, r := range s {
		d := digitValue(r)
		if d < 0 || int64(d) >= base {
			break
		}
		if n > (limit-int64(d))/base {
			return 0, false
		}
		n = n*base + int64(d)
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func digitValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	default:
		return -1
	}
}
