/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package scheduling

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Field identifies which recurrence sub-expression an Expression belongs
// to. The same variant can be legal in one field and illegal in another
// (e.g. NthWeekday is a weekday-only variant), so every evaluation and
// validation carries the field.
type Field int

const (
	FieldMonths Field = iota
	FieldMonthdays
	FieldWeekdays
)

func (f Field) String() string {
	switch f {
	case FieldMonths:
		return "months"
	case FieldMonthdays:
		return "monthdays"
	case FieldWeekdays:
		return "weekdays"
	}
	return "unknown"
}

// domain returns the integer domain of the field at dt. Only the monthday
// domain depends on the instant.
func (f Field) domain(dt time.Time) IntDomain {
	switch f {
	case FieldMonths:
		return MonthDomain()
	case FieldMonthdays:
		return MonthdayDomain(dt)
	default:
		return WeekdayDomain()
	}
}

// value projects dt onto the field's domain.
func (f Field) value(dt time.Time) int {
	switch f {
	case FieldMonths:
		return int(dt.Month())
	case FieldMonthdays:
		return dt.Day()
	default:
		return weekday(dt)
	}
}

// Expression is one variant of the recurrence AST. Implementations are
// small immutable value objects; Contains dispatches exhaustively on the
// variant set.
type Expression interface {
	// Contains reports whether dt matches the expression when evaluated
	// against the given field.
	Contains(f Field, dt time.Time) bool
	// Validate rejects variants that are illegal in the given field and
	// values outside the field's absolute domain.
	Validate(f Field) error
}

// All is the wildcard; it contains every instant.
type All struct{}

func (All) Contains(Field, time.Time) bool { return true }
func (All) Validate(Field) error           { return nil }

// SingleValueNumeric matches a single value in the field's domain.
type SingleValueNumeric struct {
	Value int
}

func (e SingleValueNumeric) Contains(f Field, dt time.Time) bool {
	return f.value(dt) == e.Value
}

func (e SingleValueNumeric) Validate(f Field) error {
	d := absoluteDomain(f)
	if !d.Contains(e.Value) {
		return fmt.Errorf("value %d outside %s domain [%d,%d]", e.Value, f, d.Min, d.Max)
	}
	return nil
}

// SingleValueLast matches the last valid value in the field's domain:
// December, the last day of the month, or Sunday.
type SingleValueLast struct{}

func (SingleValueLast) Contains(f Field, dt time.Time) bool {
	return f.value(dt) == f.domain(dt).Max
}

func (SingleValueLast) Validate(Field) error { return nil }

// Range matches values from Start to End stepping by Interval. A nil End
// means the end of the field's domain (the `L` sentinel or a defaulted
// step range). Month and weekday ranges wrap past the domain edge,
// monthday ranges do not.
type Range struct {
	Start    int
	End      *int
	Interval int
}

func (e Range) Contains(f Field, dt time.Time) bool {
	_, ok := e.expand(f.domain(dt))[f.value(dt)]
	return ok
}

func (e Range) Validate(f Field) error {
	d := absoluteDomain(f)
	if !d.Contains(e.Start) {
		return fmt.Errorf("range start %d outside %s domain [%d,%d]", e.Start, f, d.Min, d.Max)
	}
	if e.End != nil && !d.Contains(*e.End) {
		return fmt.Errorf("range end %d outside %s domain [%d,%d]", *e.End, f, d.Min, d.Max)
	}
	if e.Interval < 1 {
		return fmt.Errorf("range interval must be >= 1, got %d", e.Interval)
	}
	return nil
}

// expand materializes the range against a concrete domain. Starting from
// Start the pointer is added if the domain contains it and advanced by
// Interval; when wrapping is active and the pointer passes the domain end
// it wraps exactly once by the domain width, then runs until it passes End.
func (e Range) expand(d IntDomain) map[int]struct{} {
	end := d.Max
	if e.End != nil {
		end = *e.End
	}
	set := map[int]struct{}{}
	if e.Start > d.Max {
		return set
	}
	if end < e.Start && !d.Wraps {
		return set
	}
	wrapPending := d.Wraps && end < e.Start
	for p := e.Start; ; p += e.Interval {
		if p > d.Max {
			if !wrapPending {
				break
			}
			p -= d.Width()
			wrapPending = false
		}
		if !wrapPending && p > end {
			break
		}
		if d.Contains(p) {
			set[p] = struct{}{}
		}
	}
	return set
}

// Union matches when any member matches.
type Union struct {
	Members []Expression
}

func (e Union) Contains(f Field, dt time.Time) bool {
	return lo.SomeBy(e.Members, func(m Expression) bool { return m.Contains(f, dt) })
}

func (e Union) Validate(f Field) error {
	for _, m := range e.Members {
		if err := m.Validate(f); err != nil {
			return err
		}
	}
	return nil
}

// NearestWeekday matches the weekday (Mon-Fri) closest to Day within dt's
// month. A Saturday resolves to the preceding Friday and a Sunday to the
// following Monday, bumping the other way when the nearest would leave the
// month: day 1 on a Saturday bumps forward to Monday the 3rd, and a last
// day on a Sunday bumps back to the Friday before. Monthday field only.
type NearestWeekday struct {
	Day int
}

func (e NearestWeekday) Contains(f Field, dt time.Time) bool {
	d := f.domain(dt)
	if e.Day > d.Max {
		return false
	}
	target := e.Day
	switch time.Date(dt.Year(), dt.Month(), e.Day, 0, 0, 0, 0, dt.Location()).Weekday() {
	case time.Saturday:
		if e.Day-1 < d.Min {
			target = e.Day + 2
		} else {
			target = e.Day - 1
		}
	case time.Sunday:
		if e.Day+1 > d.Max {
			target = e.Day - 2
		} else {
			target = e.Day + 1
		}
	}
	return dt.Day() == target
}

func (e NearestWeekday) Validate(f Field) error {
	if f != FieldMonthdays {
		return fmt.Errorf("nearest-weekday expression is not valid in a %s field", f)
	}
	if e.Day < 1 || e.Day > 31 {
		return fmt.Errorf("nearest-weekday day %d outside monthday domain [1,31]", e.Day)
	}
	return nil
}

// NthWeekday matches the N-th occurrence of Weekday within dt's month,
// N in 1..5. If the month has no N-th occurrence the expression matches
// nothing. Weekday field only.
type NthWeekday struct {
	Weekday int
	N       int
}

func (e NthWeekday) Contains(f Field, dt time.Time) bool {
	return dt.Day() == e.monthday(dt)
}

// monthday resolves the N-th occurrence to a day of dt's month, or -1 when
// the month has fewer than N occurrences of the weekday.
func (e NthWeekday) monthday(dt time.Time) int {
	first := time.Date(dt.Year(), dt.Month(), 1, 0, 0, 0, 0, dt.Location())
	day := 1 + (e.Weekday-weekday(first)+7)%7 + 7*(e.N-1)
	if day > MonthdayDomain(dt).Max {
		return -1
	}
	return day
}

func (e NthWeekday) Validate(f Field) error {
	if f != FieldWeekdays {
		return fmt.Errorf("nth-weekday expression is not valid in a %s field", f)
	}
	if !WeekdayDomain().Contains(e.Weekday) {
		return fmt.Errorf("weekday %d outside weekday domain [0,6]", e.Weekday)
	}
	if e.N < 1 || e.N > 5 {
		return fmt.Errorf("nth-weekday ordinal must be in [1,5], got %d", e.N)
	}
	return nil
}

// LastWeekday matches the last occurrence of Weekday within dt's month.
// Weekday field only.
type LastWeekday struct {
	Weekday int
}

func (e LastWeekday) Contains(f Field, dt time.Time) bool {
	last := MonthdayDomain(dt).Max
	lastOfMonth := time.Date(dt.Year(), dt.Month(), last, 0, 0, 0, 0, dt.Location())
	return dt.Day() == last-(weekday(lastOfMonth)-e.Weekday+7)%7
}

func (e LastWeekday) Validate(f Field) error {
	if f != FieldWeekdays {
		return fmt.Errorf("last-weekday expression is not valid in a %s field", f)
	}
	if !WeekdayDomain().Contains(e.Weekday) {
		return fmt.Errorf("weekday %d outside weekday domain [0,6]", e.Weekday)
	}
	return nil
}

// absoluteDomain is the widest domain a field can have, used for
// time-independent validation. The monthday upper bound narrows to the
// actual month length at evaluation time.
func absoluteDomain(f Field) IntDomain {
	if f == FieldMonthdays {
		return IntDomain{Min: 1, Max: 31, Wraps: false}
	}
	return f.domain(time.Time{})
}
