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
	"strings"
	"time"

	"github.com/samber/lo"

	schederrors "github.com/aws-solutions/instance-scheduler-on-aws/pkg/errors"
)

// PeriodDefinition is the configuration-surface form of a period: string
// sets of recurrence tokens plus optional HH:MM begin/end times. It is the
// shape persisted in the config table and inlined into dispatch payloads.
type PeriodDefinition struct {
	Name        string   `json:"name" dynamodbav:"name"`
	Description string   `json:"description,omitempty" dynamodbav:"description,omitempty"`
	BeginTime   string   `json:"begintime,omitempty" dynamodbav:"begintime,omitempty"`
	EndTime     string   `json:"endtime,omitempty" dynamodbav:"endtime,omitempty"`
	Weekdays    []string `json:"weekdays,omitempty" dynamodbav:"weekdays,omitempty,stringset"`
	Monthdays   []string `json:"monthdays,omitempty" dynamodbav:"monthdays,omitempty,stringset"`
	Months      []string `json:"months,omitempty" dynamodbav:"months,omitempty,stringset"`
}

// Build parses and validates the definition into an evaluable Period.
// Failures are reported as InvalidPeriodError, the schema-level kind.
func (d PeriodDefinition) Build() (*Period, error) {
	fail := func(err error) (*Period, error) {
		return nil, &schederrors.InvalidPeriodError{PeriodName: d.Name, Err: err}
	}
	if d.Name == "" {
		return fail(fmt.Errorf("period name must not be empty"))
	}
	period := &Period{Name: d.Name}
	var err error
	if d.BeginTime != "" {
		begin, parseErr := ParseTimeOfDay(d.BeginTime)
		if parseErr != nil {
			return fail(parseErr)
		}
		period.BeginTime = lo.ToPtr(begin)
	}
	if d.EndTime != "" {
		end, parseErr := ParseTimeOfDay(d.EndTime)
		if parseErr != nil {
			return fail(parseErr)
		}
		period.EndTime = lo.ToPtr(end)
	}
	if period.Weekdays, err = ParseField(FieldWeekdays, d.Weekdays); err != nil {
		return fail(err)
	}
	if period.Monthdays, err = ParseField(FieldMonthdays, d.Monthdays); err != nil {
		return fail(err)
	}
	if period.Months, err = ParseField(FieldMonths, d.Months); err != nil {
		return fail(err)
	}
	if err = period.Validate(); err != nil {
		return fail(err)
	}
	return period, nil
}

// ScheduleDefinition is the configuration-surface form of a schedule.
// Periods reference period definitions by `name[@size]`. The tri-state
// booleans default to true when absent.
type ScheduleDefinition struct {
	Name                  string   `json:"name" dynamodbav:"name"`
	Description           string   `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Timezone              string   `json:"timezone,omitempty" dynamodbav:"timezone,omitempty"`
	Periods               []string `json:"periods,omitempty" dynamodbav:"periods,omitempty,stringset"`
	OverrideStatus        string   `json:"override_status,omitempty" dynamodbav:"override_status,omitempty"`
	StopNewInstances      *bool    `json:"stop_new_instances,omitempty" dynamodbav:"stop_new_instances,omitempty"`
	UseMaintenanceWindow  *bool    `json:"use_maintenance_window,omitempty" dynamodbav:"use_maintenance_window,omitempty"`
	Enforced              bool     `json:"enforced,omitempty" dynamodbav:"enforced,omitempty"`
	Hibernate             bool     `json:"hibernate,omitempty" dynamodbav:"hibernate,omitempty"`
	RetainRunning         bool     `json:"retain_running,omitempty" dynamodbav:"retain_running,omitempty"`
	SSMMaintenanceWindows []string `json:"ssm_maintenance_windows,omitempty" dynamodbav:"ssm_maintenance_windows,omitempty,stringset"`
}

// Build resolves the definition against already-built periods into an
// evaluable Schedule. A dangling period reference is an
// UnknownPeriodError; other failures are InvalidScheduleError.
func (d ScheduleDefinition) Build(periods map[string]*Period, defaultTimezone string) (*Schedule, error) {
	fail := func(err error) (*Schedule, error) {
		return nil, &schederrors.InvalidScheduleError{ScheduleName: d.Name, Err: err}
	}
	if d.Name == "" {
		return fail(fmt.Errorf("schedule name must not be empty"))
	}
	tzName := lo.CoalesceOrEmpty(d.Timezone, defaultTimezone, "UTC")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return fail(fmt.Errorf("unknown timezone %q", tzName))
	}
	schedule := &Schedule{
		Name:                   d.Name,
		Description:            d.Description,
		Timezone:               tz,
		OverrideStatus:         OverrideStatus(d.OverrideStatus),
		StopNewInstances:       lo.FromPtrOr(d.StopNewInstances, true),
		UseMaintenanceWindow:   lo.FromPtrOr(d.UseMaintenanceWindow, true),
		Enforced:               d.Enforced,
		Hibernate:              d.Hibernate,
		RetainRunning:          d.RetainRunning,
		MaintenanceWindowNames: d.SSMMaintenanceWindows,
	}
	for _, ref := range d.Periods {
		name, size, hasSize := strings.Cut(ref, "@")
		name = strings.TrimSpace(name)
		size = strings.TrimSpace(size)
		if hasSize && size == "" {
			// an empty size would silently hide a typo, reject it instead
			return fail(fmt.Errorf("period reference %q has an empty size", ref))
		}
		period, ok := periods[name]
		if !ok {
			return nil, &schederrors.UnknownPeriodError{ScheduleName: d.Name, PeriodName: name}
		}
		schedule.Periods = append(schedule.Periods, PeriodReference{Period: period, InstanceSize: size})
	}
	if err := schedule.Validate(); err != nil {
		return fail(err)
	}
	return schedule, nil
}
