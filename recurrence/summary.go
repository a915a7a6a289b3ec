package recurrence

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// catalog holds the phrasing for one language.
type catalog struct {
	none    string
	generic string
	until   func(date string) string
	daily   func(n int) string
	weekly  func(n int, days string) string
	byNth   func(n int, ord string, day string) string
	byDay   func(n, day int) string
	daySep  string
	day     map[Weekday]string // short names for weekly lists
	dayName map[Weekday]string
	ordinal map[int8]string
}

var english = catalog{
	none:    "does not repeat",
	generic: "custom recurrence",
	until:   func(d string) string { return " until " + d },
	daily: func(n int) string {
		if n == 1 {
			return "daily"
		}
		return fmt.Sprintf("every %d days", n)
	},
	weekly: func(n int, days string) string {
		if n == 1 {
			return "weekly on " + days
		}
		return fmt.Sprintf("every %d weeks on %s", n, days)
	},
	byNth: func(n int, ord, day string) string {
		if n == 1 {
			return fmt.Sprintf("monthly on the %s %s", ord, day)
		}
		return fmt.Sprintf("every %d months on the %s %s", n, ord, day)
	},
	byDay: func(n, day int) string {
		if n == 1 {
			return fmt.Sprintf("monthly on day %d", day)
		}
		return fmt.Sprintf("every %d months on day %d", n, day)
	},
	daySep: ", ",
	day: map[Weekday]string{
		Monday: "Mon", Tuesday: "Tue", Wednesday: "Wed", Thursday: "Thu",
		Friday: "Fri", Saturday: "Sat", Sunday: "Sun",
	},
	dayName: map[Weekday]string{
		Monday: "Monday", Tuesday: "Tuesday", Wednesday: "Wednesday", Thursday: "Thursday",
		Friday: "Friday", Saturday: "Saturday", Sunday: "Sunday",
	},
	ordinal: map[int8]string{
		1: "first", 2: "second", 3: "third", 4: "fourth", 5: "fifth",
		-1: "last", -2: "second to last", -3: "third to last", -4: "fourth to last", -5: "fifth to last",
	},
}

var korean = catalog{
	none:    "반복 없음",
	generic: "사용자 지정 반복",
	until:   func(d string) string { return " ~ " + d },
	daily: func(n int) string {
		if n == 1 {
			return "매일"
		}
		return fmt.Sprintf("%d일마다", n)
	},
	weekly: func(n int, days string) string {
		if n == 1 {
			return fmt.Sprintf("매주 (%s)", days)
		}
		return fmt.Sprintf("%d주마다 (%s)", n, days)
	},
	byNth: func(n int, ord, day string) string {
		if n == 1 {
			return fmt.Sprintf("매월 %s %s", ord, day)
		}
		return fmt.Sprintf("%d개월마다 %s %s", n, ord, day)
	},
	byDay: func(n, day int) string {
		if n == 1 {
			return fmt.Sprintf("매월 %d일", day)
		}
		return fmt.Sprintf("%d개월마다 %d일", n, day)
	},
	daySep: ", ",
	day: map[Weekday]string{
		Monday: "월", Tuesday: "화", Wednesday: "수", Thursday: "목",
		Friday: "금", Saturday: "토", Sunday: "일",
	},
	dayName: map[Weekday]string{
		Monday: "월요일", Tuesday: "화요일", Wednesday: "수요일", Thursday: "목요일",
		Friday: "금요일", Saturday: "토요일", Sunday: "일요일",
	},
	ordinal: map[int8]string{
		1: "첫째", 2: "둘째", 3: "셋째", 4: "넷째", 5: "다섯째",
		-1: "마지막", -2: "끝에서 둘째", -3: "끝에서 셋째", -4: "끝에서 넷째", -5: "끝에서 다섯째",
	},
}

// SupportedLanguages lists the summary catalogs, preferred first.
var SupportedLanguages = []language.Tag{language.English, language.Korean}

var (
	catalogs       = []*catalog{&english, &korean}
	summaryMatcher = language.NewMatcher(SupportedLanguages)
)

// Describe returns an English summary of rule, e.g. "every 2 weeks on Mon, Wed".
func Describe(rule Rule) string {
	return english.describe(rule)
}

// DescribeIn summarizes rule in the best match for lang, which may be a
// BCP 47 tag or an Accept-Language value. Unknown languages get English.
func DescribeIn(lang string, rule Rule) string {
	return catalogFor(lang).describe(rule)
}

// DescribeSpec summarizes an unvalidated spec. Specs that fail validation
// get the generic phrase instead of an error.
func DescribeSpec(lang string, spec RuleSpec) string {
	c := catalogFor(lang)
	if strings.TrimSpace(spec.Freq) == "" {
		return c.none
	}
	rule, err := spec.Build()
	if err != nil {
		return c.generic
	}
	return c.describe(rule)
}

func catalogFor(lang string) *catalog {
	if lang == "" {
		return &english
	}
	_, idx := language.MatchStrings(summaryMatcher, lang)
	return catalogs[idx]
}

func (c *catalog) describe(rule Rule) string {
	if rule == nil {
		return c.none
	}

	var text string
	switch r := rule.(type) {
	case *DailyRule:
		text = c.daily(r.interval)
	case *WeeklyRule:
		labels := make([]string, len(r.days))
		for i, d := range r.days {
			labels[i] = c.day[d]
		}
		text = c.weekly(r.interval, strings.Join(labels, c.daySep))
	case *MonthlyWeekdayRule:
		text = c.byNth(r.interval, c.ordinal[r.ordinal.Ordinal], c.dayName[r.ordinal.Weekday])
	case *MonthlyDayRule:
		text = c.byDay(r.interval, r.day)
	default:
		return c.generic
	}

	if until, ok := rule.Until().Get(); ok {
		text += c.until(FormatDate(until))
	}
	return text
}
