package analytics

import (
	"strings"
	"time"

	"github.com/trogers1052/trade-journal/internal/models"
)

// ZoneKind selects how a TimezoneSpec resolves civil time
type ZoneKind int

const (
	// ZoneLocal uses the zone of the evaluating process
	ZoneLocal ZoneKind = iota
	// ZoneOffset applies a fixed UTC offset in minutes
	ZoneOffset
	// ZoneNamed uses an IANA zone including its DST transitions
	ZoneNamed
)

// TimezoneSpec describes the zone used to derive day keys and clock times
type TimezoneSpec struct {
	Kind          ZoneKind
	Name          string
	OffsetMinutes int
}

// LocalZone resolves in the evaluating environment's zone
func LocalZone() TimezoneSpec { return TimezoneSpec{Kind: ZoneLocal} }

// FixedOffset resolves at a fixed offset from UTC
func FixedOffset(minutes int) TimezoneSpec {
	return TimezoneSpec{Kind: ZoneOffset, OffsetMinutes: minutes}
}

// NamedZone resolves in an IANA zone such as "America/New_York"
func NamedZone(name string) TimezoneSpec { return TimezoneSpec{Kind: ZoneNamed, Name: name} }

// ParseTimezone turns a configuration string into a spec. Empty or
// "local" means the local zone; numeric or "UTC±HH:MM" values are fixed
// offsets; anything else is treated as a zone name.
func ParseTimezone(s string) TimezoneSpec {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, models.ApplyInLocal) {
		return LocalZone()
	}
	return SpecFromTimezone(models.ParseTimezone(s))
}

// SpecFromTimezone converts a configured timezone
func SpecFromTimezone(tz models.Timezone) TimezoneSpec {
	switch {
	case tz.OffsetMinutes != nil:
		return FixedOffset(*tz.OffsetMinutes)
	case tz.Name != "":
		return NamedZone(tz.Name)
	default:
		return LocalZone()
	}
}

// SessionZone picks the zone a session rule is evaluated in. applyIn
// "local" ignores the configured timezone entirely so the conversion is
// applied exactly once.
func SessionZone(s models.SessionRule) TimezoneSpec {
	if s.ApplyIn == models.ApplyInLocal {
		return LocalZone()
	}
	return SpecFromTimezone(s.Timezone)
}

// TimeFields are the calendar coordinates of an instant in a zone
type TimeFields struct {
	DayKey       string `json:"day_key"`
	Weekday      int    `json:"weekday"`
	MinutesOfDay int    `json:"minutes_of_day"`
}

// Zone is a TimezoneSpec with its location loaded once
type Zone struct {
	spec TimezoneSpec
	loc  *time.Location
}

// Bind loads the location for the spec. Unknown zone names degrade to UTC.
func (tz TimezoneSpec) Bind() Zone {
	z := Zone{spec: tz}
	switch tz.Kind {
	case ZoneNamed:
		loc, err := time.LoadLocation(tz.Name)
		if err != nil {
			loc = time.UTC
		}
		z.loc = loc
	case ZoneLocal:
		z.loc = time.Local
	}
	return z
}

// Fields resolves ts into the zone's calendar
func (z Zone) Fields(ts time.Time) TimeFields {
	var civil time.Time
	switch z.spec.Kind {
	case ZoneOffset:
		// shift the instant, then read the fields as UTC
		civil = ts.UTC().Add(time.Duration(z.spec.OffsetMinutes) * time.Minute)
	default:
		loc := z.loc
		if loc == nil {
			loc = time.UTC
		}
		civil = ts.In(loc)
	}

	minutes := civil.Hour()*60 + civil.Minute()
	if minutes < 0 {
		minutes = 0
	}
	if minutes > 1439 {
		minutes = 1439
	}
	return TimeFields{
		DayKey:       civil.Format(dayKeyLayout),
		Weekday:      int(civil.Weekday()),
		MinutesOfDay: minutes,
	}
}

// TradeFields resolves a trade time. A date-only trade keeps its civil
// date in every zone and sits at minute zero.
func (z Zone) TradeFields(tt TradeTime) TimeFields {
	if !tt.DateOnly {
		return z.Fields(tt.Instant)
	}
	civil := tt.Instant.UTC()
	return TimeFields{
		DayKey:  civil.Format(dayKeyLayout),
		Weekday: int(civil.Weekday()),
	}
}

// ResolveTimeFields resolves ts under tz
func ResolveTimeFields(ts time.Time, tz TimezoneSpec) TimeFields {
	return tz.Bind().Fields(ts)
}
