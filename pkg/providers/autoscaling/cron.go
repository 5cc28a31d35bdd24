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

package autoscaling

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
)

// cronRecurrence renders the five-field Unix cron recurrence of a
// scheduled action firing at tod on the period's recurrence. The group
// provider evaluates cron in the group's local time, so the action carries
// the schedule's timezone separately.
func cronRecurrence(tod scheduling.TimeOfDay, p *scheduling.Period) (string, error) {
	dom, err := cronMonthdays(p.Monthdays)
	if err != nil {
		return "", err
	}
	mon, err := cronMonths(p.Months)
	if err != nil {
		return "", err
	}
	dow, err := cronWeekdays(p.Weekdays)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d %s %s %s", tod.Minute, tod.Hour, dom, mon, dow), nil
}

// cronMonthdays translates the monthday expression token by token. The
// monthday domain does not wrap, so plain ranges carry over directly; the
// calendar-dependent variants (L, W) have no cron equivalent here.
func cronMonthdays(e scheduling.Expression) (string, error) {
	switch v := e.(type) {
	case nil, scheduling.All:
		return "*", nil
	case scheduling.SingleValueNumeric:
		return strconv.Itoa(v.Value), nil
	case scheduling.Range:
		end := 31
		if v.End != nil {
			end = *v.End
		}
		if end < v.Start {
			return "", fmt.Errorf("monthday range %d-%d is empty", v.Start, end)
		}
		if v.Interval > 1 {
			return fmt.Sprintf("%d-%d/%d", v.Start, end, v.Interval), nil
		}
		return fmt.Sprintf("%d-%d", v.Start, end), nil
	case scheduling.Union:
		tokens := make([]string, 0, len(v.Members))
		for _, member := range v.Members {
			token, err := cronMonthdays(member)
			if err != nil {
				return "", err
			}
			tokens = append(tokens, token)
		}
		return strings.Join(tokens, ","), nil
	default:
		return "", fmt.Errorf("monthday expression %T has no cron recurrence equivalent", e)
	}
}

// cronMonths materializes the month set against a representative year so
// wrapping ranges (e.g. Nov-Feb) come out as explicit month lists.
func cronMonths(e scheduling.Expression) (string, error) {
	if isWildcard(e) {
		return "*", nil
	}
	if err := rejectCalendarVariants(e, scheduling.FieldMonths); err != nil {
		return "", err
	}
	var months []int
	for m := 1; m <= 12; m++ {
		sample := time.Date(2024, time.Month(m), 15, 0, 0, 0, 0, time.UTC)
		if e.Contains(scheduling.FieldMonths, sample) {
			months = append(months, m)
		}
	}
	if len(months) == 0 {
		return "", fmt.Errorf("month expression matches no month")
	}
	if len(months) == 12 {
		return "*", nil
	}
	return joinInts(months), nil
}

// cronWeekdays materializes the weekday set against a representative week
// and renumbers from Mon=0 to cron's Sun=0.
func cronWeekdays(e scheduling.Expression) (string, error) {
	if isWildcard(e) {
		return "*", nil
	}
	if err := rejectCalendarVariants(e, scheduling.FieldWeekdays); err != nil {
		return "", err
	}
	var days []int
	// 2024-01-01 is a Monday; day d of that week has our weekday number d
	for d := 0; d < 7; d++ {
		sample := time.Date(2024, 1, 1+d, 0, 0, 0, 0, time.UTC)
		if e.Contains(scheduling.FieldWeekdays, sample) {
			days = append(days, (d+1)%7)
		}
	}
	if len(days) == 0 {
		return "", fmt.Errorf("weekday expression matches no weekday")
	}
	if len(days) == 7 {
		return "*", nil
	}
	slices.Sort(days)
	return joinInts(days), nil
}

// rejectCalendarVariants refuses the variants whose resolution depends on
// the concrete month; a fixed cron recurrence cannot express them.
func rejectCalendarVariants(e scheduling.Expression, f scheduling.Field) error {
	switch v := e.(type) {
	case scheduling.SingleValueLast, scheduling.NthWeekday, scheduling.LastWeekday, scheduling.NearestWeekday:
		return fmt.Errorf("%s expression %T has no cron recurrence equivalent", f, e)
	case scheduling.Union:
		for _, member := range v.Members {
			if err := rejectCalendarVariants(member, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func isWildcard(e scheduling.Expression) bool {
	if e == nil {
		return true
	}
	_, ok := e.(scheduling.All)
	return ok
}

func joinInts(values []int) string {
	return strings.Join(lo.Map(values, func(v int, _ int) string { return strconv.Itoa(v) }), ",")
}
