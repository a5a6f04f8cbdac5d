package functions

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/flowquery-go/flowquery/value"
)

func registerTemporal(r *Registry) {
	r.registerScalar("date", fnDate)
	r.registerScalar("datetime", fnDatetime)
	r.registerScalar("time", fnTime)
	r.registerScalar("localdatetime", fnLocalDatetime)
	r.registerScalar("localtime", fnLocalTime)
	r.registerScalar("timestamp", fnTimestamp)
	r.registerScalar("duration", fnDuration)
}

// parseTemporalArg parses a string/number/map argument into a time.Time,
// grounded on temporal_utils.py's parse_temporal_arg: ISO 8601 strings,
// epoch-millisecond numbers, or a {year,month,day,...} component map.
func parseTemporalArg(v value.Value, fn string) (time.Time, error) {
	switch v.Kind {
	case value.String:
		s := strings.Replace(v.Str(), "Z", "+00:00", 1)
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, argErr(fn, "invalid temporal string '"+v.Str()+"'")
	case value.Int, value.Float:
		ms := v.AsFloat()
		return time.UnixMilli(int64(ms)).UTC(), nil
	case value.Map:
		m := v.Map()
		get := func(key string, def int) int {
			if mv, ok := m.Get(key); ok && mv.IsNumeric() {
				return int(mv.AsFloat())
			}
			return def
		}
		now := time.Now()
		return time.Date(
			get("year", now.Year()), time.Month(get("month", 1)), get("day", 1),
			get("hour", 0), get("minute", 0), get("second", 0), get("millisecond", 0)*1_000_000,
			time.UTC,
		), nil
	default:
		return time.Time{}, argErr(fn, "expects a string, number (epoch millis), or map argument")
	}
}

func isoDayOfWeek(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// buildDatetimeObject grounds on temporal_utils.py's build_datetime_object.
func buildDatetimeObject(t time.Time) value.Value {
	u := t.UTC()
	out := value.NewOrderedMap()
	out.Set("year", value.NewInt(int64(u.Year())))
	out.Set("month", value.NewInt(int64(u.Month())))
	out.Set("day", value.NewInt(int64(u.Day())))
	out.Set("hour", value.NewInt(int64(u.Hour())))
	out.Set("minute", value.NewInt(int64(u.Minute())))
	out.Set("second", value.NewInt(int64(u.Second())))
	ms := u.Nanosecond() / 1_000_000
	out.Set("millisecond", value.NewInt(int64(ms)))
	out.Set("epochMillis", value.NewInt(u.UnixMilli()))
	out.Set("epochSeconds", value.NewInt(u.Unix()))
	out.Set("dayOfWeek", value.NewInt(int64(isoDayOfWeek(u))))
	out.Set("dayOfYear", value.NewInt(int64(u.YearDay())))
	out.Set("quarter", value.NewInt(int64((int(u.Month())-1)/3+1)))
	out.Set("formatted", value.NewString(u.Format("2006-01-02T15:04:05.000")+"Z"))
	return value.NewMap(out)
}

// buildDateObject grounds on build_date_object (no time component).
func buildDateObject(t time.Time) value.Value {
	out := value.NewOrderedMap()
	out.Set("year", value.NewInt(int64(t.Year())))
	out.Set("month", value.NewInt(int64(t.Month())))
	out.Set("day", value.NewInt(int64(t.Day())))
	dateOnly := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	out.Set("epochMillis", value.NewInt(dateOnly.UnixMilli()))
	out.Set("dayOfWeek", value.NewInt(int64(isoDayOfWeek(t))))
	out.Set("dayOfYear", value.NewInt(int64(t.YearDay())))
	out.Set("quarter", value.NewInt(int64((int(t.Month())-1)/3+1)))
	out.Set("formatted", value.NewString(t.Format("2006-01-02")))
	return value.NewMap(out)
}

// buildTimeObject grounds on build_time_object.
func buildTimeObject(t time.Time, utc bool) value.Value {
	out := value.NewOrderedMap()
	out.Set("hour", value.NewInt(int64(t.Hour())))
	out.Set("minute", value.NewInt(int64(t.Minute())))
	out.Set("second", value.NewInt(int64(t.Second())))
	ms := t.Nanosecond() / 1_000_000
	out.Set("millisecond", value.NewInt(int64(ms)))
	formatted := t.Format("15:04:05.000")
	if utc {
		formatted += "Z"
	}
	out.Set("formatted", value.NewString(formatted))
	return value.NewMap(out)
}

func atMostOneArg(args []value.Value, fn string) (value.Value, bool, error) {
	if len(args) > 1 {
		return value.Value{}, false, argErr(fn, "accepts at most one argument")
	}
	if len(args) == 1 {
		return args[0], true, nil
	}
	return value.Value{}, false, nil
}

func fnDate(args []value.Value) (value.Value, error) {
	arg, has, err := atMostOneArg(args, "date")
	if err != nil {
		return value.Value{}, err
	}
	t := time.Now()
	if has {
		if t, err = parseTemporalArg(arg, "date"); err != nil {
			return value.Value{}, err
		}
	}
	return buildDateObject(t), nil
}

func fnDatetime(args []value.Value) (value.Value, error) {
	arg, has, err := atMostOneArg(args, "datetime")
	if err != nil {
		return value.Value{}, err
	}
	t := time.Now().UTC()
	if has {
		if t, err = parseTemporalArg(arg, "datetime"); err != nil {
			return value.Value{}, err
		}
	}
	return buildDatetimeObject(t), nil
}

func fnLocalDatetime(args []value.Value) (value.Value, error) {
	return fnDatetime(args)
}

func fnTime(args []value.Value) (value.Value, error) {
	arg, has, err := atMostOneArg(args, "time")
	if err != nil {
		return value.Value{}, err
	}
	t := time.Now().UTC()
	if has {
		if t, err = parseTemporalArg(arg, "time"); err != nil {
			return value.Value{}, err
		}
	}
	return buildTimeObject(t, true), nil
}

func fnLocalTime(args []value.Value) (value.Value, error) {
	arg, has, err := atMostOneArg(args, "localtime")
	if err != nil {
		return value.Value{}, err
	}
	t := time.Now()
	if has {
		if t, err = parseTemporalArg(arg, "localtime"); err != nil {
			return value.Value{}, err
		}
	}
	return buildTimeObject(t, false), nil
}

func fnTimestamp(args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Value{}, argErr("timestamp", "takes no arguments")
	}
	return value.NewInt(time.Now().UnixMilli()), nil
}

var isoDurationRegex = regexp.MustCompile(
	`^P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)W)?` +
		`(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// fnDuration grounds on duration.py: parses either an ISO 8601 duration
// string or a component map into the standard duration result object.
func fnDuration(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, argErr("duration", "expects one argument")
	}
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	var years, months, weeks, days, hours, minutes, seconds float64
	switch v.Kind {
	case value.String:
		m := isoDurationRegex.FindStringSubmatch(v.Str())
		if m == nil {
			return value.Value{}, argErr("duration", "invalid ISO 8601 duration string '"+v.Str()+"'")
		}
		years = parseDurationComponent(m[1])
		months = parseDurationComponent(m[2])
		weeks = parseDurationComponent(m[3])
		days = parseDurationComponent(m[4])
		hours = parseDurationComponent(m[5])
		minutes = parseDurationComponent(m[6])
		seconds = parseDurationComponent(m[7])
	case value.Map:
		get := func(key string) float64 {
			if mv, ok := v.Map().Get(key); ok && mv.IsNumeric() {
				return mv.AsFloat()
			}
			return 0
		}
		years, months, weeks, days = get("years"), get("months"), get("weeks"), get("days")
		hours, minutes, seconds = get("hours"), get("minutes"), get("seconds")
	default:
		return value.Value{}, argErr("duration", "expects a string or map argument")
	}
	return buildDurationObject(years, months, weeks, days, hours, minutes, seconds), nil
}

func parseDurationComponent(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func buildDurationObject(years, months, weeks, days, hours, minutes, rawSeconds float64) value.Value {
	seconds := int64(rawSeconds)
	fractional := rawSeconds - float64(seconds)
	milliseconds := int64(fractional*1000 + 0.5)
	totalDays := int64(days + weeks*7)
	totalSeconds := int64(hours*3600 + minutes*60) + seconds
	totalMonths := int64(years*12 + months)

	out := value.NewOrderedMap()
	out.Set("years", value.NewInt(int64(years)))
	out.Set("months", value.NewInt(int64(months)))
	out.Set("weeks", value.NewInt(int64(weeks)))
	out.Set("days", value.NewInt(totalDays))
	out.Set("hours", value.NewInt(int64(hours)))
	out.Set("minutes", value.NewInt(int64(minutes)))
	out.Set("seconds", value.NewInt(seconds))
	out.Set("milliseconds", value.NewInt(milliseconds))
	out.Set("totalMonths", value.NewInt(totalMonths))
	out.Set("totalDays", value.NewInt(totalDays))
	out.Set("totalSeconds", value.NewInt(totalSeconds))
	out.Set("formatted", value.NewString(formatDuration(years, months, weeks, days, hours, minutes, seconds, milliseconds)))
	return value.NewMap(out)
}

func formatDuration(years, months, weeks, days, hours, minutes float64, seconds, milliseconds int64) string {
	var b strings.Builder
	b.WriteString("P")
	writeIf(&b, years, "Y")
	writeIf(&b, months, "M")
	writeIf(&b, weeks, "W")
	writeIf(&b, days, "D")
	hasTime := hours != 0 || minutes != 0 || seconds != 0 || milliseconds != 0
	if hasTime {
		b.WriteString("T")
		writeIf(&b, hours, "H")
		writeIf(&b, minutes, "M")
		if seconds != 0 || milliseconds != 0 {
			if milliseconds != 0 {
				b.WriteString(strconv.FormatInt(seconds, 10) + "." + padMillis(milliseconds) + "S")
			} else {
				b.WriteString(strconv.FormatInt(seconds, 10) + "S")
			}
		}
	}
	s := b.String()
	if s == "P" {
		return "PT0S"
	}
	return s
}

func writeIf(b *strings.Builder, v float64, suffix string) {
	if v != 0 {
		b.WriteString(strconv.FormatInt(int64(v), 10) + suffix)
	}
}

func padMillis(ms int64) string {
	s := strconv.FormatInt(ms, 10)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}
