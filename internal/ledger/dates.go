package ledger

import (
	"fmt"
	"regexp"
	"time"
)

// SentinelDate is the fallback bucket for values that cannot be read as a
// calendar date. Availability over correctness: a bad date degrades one
// entry's bucketing instead of failing the write.
const SentinelDate = "1970-01-01"

const dayFormat = "2006-01-02"

var (
	isoPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	isoShape  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// Dateable is anything that can convert itself to a point in time, such as
// a store-specific timestamp value.
type Dateable interface {
	ToDate() time.Time
}

// NormalizeDate coerces an arbitrary value to a YYYY-MM-DD string. Source
// data may carry dates as strings, timestamp values or nothing at all, so
// every entry point funnels through here. Idempotent.
func NormalizeDate(v any) string {
	switch d := v.(type) {
	case nil:
		return SentinelDate
	case string:
		if isoPrefix.MatchString(d) {
			return d
		}
		if m := isoShape.FindString(d); m != "" {
			return m
		}
		return SentinelDate
	case time.Time:
		return d.UTC().Format(dayFormat)
	}
	if d, ok := v.(Dateable); ok {
		return d.ToDate().UTC().Format(dayFormat)
	}
	if m := isoShape.FindString(fmt.Sprint(v)); m != "" {
		return m
	}
	return SentinelDate
}
