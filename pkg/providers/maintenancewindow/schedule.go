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

package maintenancewindow

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

// asSchedule translates a reconciled window into a synthetic enforced
// schedule covering [next - margin, next + duration). Periods are defined
// within a single local day, so a span crossing midnight is split into up
// to three single-day sub-periods: begin to end-of-day, any full middle
// day, and midnight to end.
func asSchedule(window *store.MaintenanceWindow, margin time.Duration) (*scheduling.Schedule, error) {
	if window.NextExecutionTime == nil {
		return nil, fmt.Errorf("window has no upcoming execution")
	}
	location := time.UTC
	if window.Timezone != "" {
		loc, err := time.LoadLocation(window.Timezone)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q", window.Timezone)
		}
		location = loc
	}
	begin := window.NextExecutionTime.Add(-margin).In(location)
	end := window.NextExecutionTime.Add(time.Duration(window.DurationHours) * time.Hour).In(location)

	var periods []scheduling.PeriodReference
	addPeriod := func(day time.Time, beginTime, endTime *scheduling.TimeOfDay) {
		periods = append(periods, scheduling.PeriodReference{Period: &scheduling.Period{
			Name:      fmt.Sprintf("%s-period-%d", window.NameID(), len(periods)+1),
			BeginTime: beginTime,
			EndTime:   endTime,
			Monthdays: scheduling.SingleValueNumeric{Value: day.Day()},
			Months:    scheduling.SingleValueNumeric{Value: int(day.Month())},
		}})
	}

	if sameDay(begin, end) {
		addPeriod(begin, timeOfDay(begin), timeOfDay(end))
	} else {
		// first day runs from the window begin through end of day
		addPeriod(begin, timeOfDay(begin), nil)
		for day := startOfDay(begin).AddDate(0, 0, 1); day.Before(startOfDay(end)); day = day.AddDate(0, 0, 1) {
			addPeriod(day, nil, nil)
		}
		// a window ending exactly at midnight contributes nothing to the
		// end day
		if endTime := timeOfDay(end); endTime.Hour != 0 || endTime.Minute != 0 {
			addPeriod(end, &scheduling.TimeOfDay{}, endTime)
		}
	}

	return &scheduling.Schedule{
		Name:     window.NameID(),
		Timezone: location,
		Enforced: true,
		Periods:  periods,
	}, nil
}

func timeOfDay(t time.Time) *scheduling.TimeOfDay {
	return lo.ToPtr(scheduling.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()})
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
