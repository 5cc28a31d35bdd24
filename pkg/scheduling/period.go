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
	"regexp"
	"strconv"
	"time"
)

var timeOfDayRegexp = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):([0-5][0-9])$`)

// TimeOfDay is a local wall-clock HH:MM.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a zero-padded 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayRegexp.FindStringSubmatch(s)
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("time %q is not in zero-padded 24-hour HH:MM form", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// minutes positions the time within the local day for ordered comparison.
func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

func minutesOfDay(dt time.Time) int {
	return dt.Hour()*60 + dt.Minute()
}

// Period is a reusable fragment of a schedule: an optional begin/end
// wall-clock window plus a recurrence over weekdays, monthdays, and
// months. A period is defined within a single local day; it never wraps
// across midnight.
type Period struct {
	Name      string
	BeginTime *TimeOfDay
	EndTime   *TimeOfDay
	Weekdays  Expression
	Monthdays Expression
	Months    Expression
}

// State returns the period's desired state at the local instant lt.
func (p *Period) State(lt time.Time) ScheduleState {
	for _, check := range []struct {
		field Field
		expr  Expression
	}{
		{FieldWeekdays, p.Weekdays},
		{FieldMonthdays, p.Monthdays},
		{FieldMonths, p.Months},
	} {
		if check.expr != nil && !check.expr.Contains(check.field, lt) {
			return StateStopped
		}
	}
	now := minutesOfDay(lt)
	switch {
	case p.BeginTime == nil && p.EndTime == nil:
		return StateRunning
	case p.BeginTime == nil:
		if now >= p.EndTime.minutes() {
			return StateStopped
		}
		return StateAny
	case p.EndTime == nil:
		if now >= p.BeginTime.minutes() {
			return StateRunning
		}
		return StateAny
	default:
		if now >= p.BeginTime.minutes() && now < p.EndTime.minutes() {
			return StateRunning
		}
		return StateStopped
	}
}

// Validate enforces the period invariants: a begin strictly before the end
// when both are set, and at least one of the five fields non-default.
func (p *Period) Validate() error {
	if p.BeginTime != nil && p.EndTime != nil && p.BeginTime.minutes() >= p.EndTime.minutes() {
		return fmt.Errorf("begintime %s must be earlier than endtime %s within the same day", p.BeginTime, p.EndTime)
	}
	if p.BeginTime == nil && p.EndTime == nil && isWildcard(p.Weekdays) && isWildcard(p.Monthdays) && isWildcard(p.Months) {
		return fmt.Errorf("at least one of begintime, endtime, weekdays, monthdays, or months must be set")
	}
	return nil
}

func isWildcard(e Expression) bool {
	if e == nil {
		return true
	}
	_, ok := e.(All)
	return ok
}
