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

import "time"

// IntDomain is the closed integer interval a recurrence sub-expression is
// evaluated against. Months and weekdays wrap at the domain edge, monthdays
// do not. The monthday domain's upper bound depends on the instant's
// year/month, so domains are derived per evaluation, never stored.
type IntDomain struct {
	Min   int
	Max   int
	Wraps bool
}

// MonthDomain covers calendar months, January=1 through December=12.
func MonthDomain() IntDomain {
	return IntDomain{Min: 1, Max: 12, Wraps: true}
}

// WeekdayDomain covers weekdays, Monday=0 through Sunday=6.
func WeekdayDomain() IntDomain {
	return IntDomain{Min: 0, Max: 6, Wraps: true}
}

// MonthdayDomain covers the days of dt's month. Ranges over monthdays do
// not wrap into the next month.
func MonthdayDomain(dt time.Time) IntDomain {
	return IntDomain{Min: 1, Max: daysInMonth(dt.Year(), dt.Month()), Wraps: false}
}

// Contains reports whether v lies inside the domain interval.
func (d IntDomain) Contains(v int) bool {
	return v >= d.Min && v <= d.Max
}

// Width returns the number of values in the domain.
func (d IntDomain) Width() int {
	return d.Max - d.Min + 1
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// weekday maps dt onto the Monday=0..Sunday=6 domain.
func weekday(dt time.Time) int {
	return (int(dt.Weekday()) + 6) % 7
}
