package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday is a two-letter weekday token as used in BYDAY lists.
type Weekday string

const (
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
	Sunday    Weekday = "SU"
)

// Weekdays lists all tokens in Monday-first order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayToTime = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// Time converts the token to a time.Weekday.
func (w Weekday) Time() time.Weekday {
	return weekdayToTime[w]
}

// Valid reports whether w is one of MO..SU.
func (w Weekday) Valid() bool {
	_, ok := weekdayToTime[w]
	return ok
}

// WeekdayOf returns the token for a time.Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	// time.Sunday == 0, Weekdays is Monday-first
	return Weekdays[(int(d)+6)%7]
}

// OrdinalWeekday is an nth-weekday-of-month selector such as "2MO" or "-1FR".
// Positive ordinals count from the start of the month, negative from the end.
type OrdinalWeekday struct {
	Ordinal int8
	Weekday Weekday
}

func (o OrdinalWeekday) String() string {
	return strconv.Itoa(int(o.Ordinal)) + string(o.Weekday)
}

// ErrMalformedToken is matched by every ParseError.
var ErrMalformedToken = errors.New("malformed weekday token")

// ParseError describes a BYDAY token that failed the token grammar.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid weekday token %q: %s", e.Token, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedToken
}

// ParseWeekday parses a plain weekday token (MO..SU).
func ParseWeekday(token string) (Weekday, error) {
	w := Weekday(token)
	if !w.Valid() {
		return "", &ParseError{Token: token, Reason: "expected one of MO, TU, WE, TH, FR, SA, SU"}
	}
	return w, nil
}

// ParseOrdinalWeekday parses tokens of the form [-]N followed by a weekday,
// e.g. "2MO", "-1FR". The ordinal must be nonzero and within ±5.
func ParseOrdinalWeekday(token string) (OrdinalWeekday, error) {
	if len(token) < 3 {
		return OrdinalWeekday{}, &ParseError{Token: token, Reason: "too short"}
	}

	split := len(token) - 2
	wd, err := ParseWeekday(token[split:])
	if err != nil {
		return OrdinalWeekday{}, &ParseError{Token: token, Reason: "unknown weekday suffix"}
	}

	digits := token[:split]
	if strings.HasPrefix(digits, "-") {
		digits = digits[1:]
	}
	if digits == "" {
		return OrdinalWeekday{}, &ParseError{Token: token, Reason: "missing ordinal"}
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return OrdinalWeekday{}, &ParseError{Token: token, Reason: "ordinal must be an integer"}
		}
	}

	n, err := strconv.Atoi(token[:split])
	if err != nil {
		return OrdinalWeekday{}, &ParseError{Token: token, Reason: "ordinal out of range"}
	}
	if n == 0 {
		return OrdinalWeekday{}, &ParseError{Token: token, Reason: "ordinal must be nonzero"}
	}
	if n < -5 || n > 5 {
		return OrdinalWeekday{}, &ParseError{Token: token, Reason: "ordinal must be within -5..5"}
	}

	return OrdinalWeekday{Ordinal: int8(n), Weekday: wd}, nil
}
