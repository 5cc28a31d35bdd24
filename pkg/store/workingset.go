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

package store

import (
	"context"

	"github.com/samber/lo"

	schederrors "github.com/aws-solutions/instance-scheduler-on-aws/pkg/errors"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

// WorkingSet is the set of evaluable schedules a runner works from in one
// invocation, built from definitions once and then read-only. Definitions
// that fail validation are logged and skipped; a bad row never aborts the
// cycle.
type WorkingSet struct {
	schedules map[string]*scheduling.Schedule
}

// BuildWorkingSet validates and links the given definitions. When
// scheduleNames is non-empty only those schedules are built.
func BuildWorkingSet(ctx context.Context, scheduleDefs []scheduling.ScheduleDefinition, periodDefs []scheduling.PeriodDefinition, defaultTimezone string, scheduleNames []string) *WorkingSet {
	logger := logging.FromContext(ctx)
	periods := map[string]*scheduling.Period{}
	for _, def := range periodDefs {
		period, err := def.Build()
		if err != nil {
			logger.With("period", def.Name).Errorf("skipping period definition: %s", err)
			continue
		}
		periods[period.Name] = period
	}
	ws := &WorkingSet{schedules: map[string]*scheduling.Schedule{}}
	for _, def := range scheduleDefs {
		if len(scheduleNames) > 0 && !lo.Contains(scheduleNames, def.Name) {
			continue
		}
		schedule, err := def.Build(periods, defaultTimezone)
		if err != nil {
			logger.With("schedule", def.Name).Errorf("skipping schedule definition: %s", err)
			continue
		}
		ws.schedules[schedule.Name] = schedule
	}
	return ws
}

// Schedule resolves a schedule by name, returning UnknownScheduleError for
// names that did not survive the build.
func (w *WorkingSet) Schedule(name string) (*scheduling.Schedule, error) {
	schedule, ok := w.schedules[name]
	if !ok {
		return nil, &schederrors.UnknownScheduleError{ScheduleName: name}
	}
	return schedule, nil
}

// Schedules returns every schedule in the set.
func (w *WorkingSet) Schedules() []*scheduling.Schedule {
	return lo.Values(w.schedules)
}

// Len returns the number of schedules in the set.
func (w *WorkingSet) Len() int {
	return len(w.schedules)
}
