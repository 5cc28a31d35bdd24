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
)

// OverridePeriodName is the marker period name reported when a schedule's
// override_status short-circuits period evaluation.
const OverridePeriodName = "override_status"

// PeriodReference binds a period into a schedule, optionally with the
// resource size the schedule wants while that period is the running one.
type PeriodReference struct {
	Period       *Period
	InstanceSize string
}

// Schedule is a named collection of periods plus behavior flags, evaluated
// in its own timezone.
type Schedule struct {
	Name           string
	Timezone       *time.Location
	Periods        []PeriodReference
	OverrideStatus OverrideStatus
	Description    string

	// StopNewInstances stops a newly registered instance found outside a
	// running period. Defaults to true.
	StopNewInstances bool
	// UseMaintenanceWindow lets active maintenance windows force the
	// schedule to running. Defaults to true.
	UseMaintenanceWindow bool
	// Enforced corrects manual state drift instead of only following
	// schedule transitions.
	Enforced bool
	// Hibernate requests hibernation on EC2 stop.
	Hibernate bool
	// RetainRunning preserves an operator's manual start across the end of
	// a running period.
	RetainRunning bool

	// MaintenanceWindowNames are the display names of provider maintenance
	// windows honored by this schedule; every window sharing a listed name
	// is honored.
	MaintenanceWindowNames []string
}

// Result is the outcome of evaluating a schedule at an instant.
type Result struct {
	State ScheduleState
	// DesiredSize is the authoritative period's requested resource size,
	// empty when no running period requests one.
	DesiredSize string
	// PeriodName identifies the authoritative period when State is
	// Running, or OverridePeriodName under an override.
	PeriodName string
}

// Evaluate localizes dt into the schedule's timezone and composes the
// period states under Running > Any > Stopped priority. A Stopped result
// between two adjacent running periods is substituted by the upcoming
// period's result so back-to-back periods do not produce a one-minute
// stop notch at the boundary.
func (s *Schedule) Evaluate(dt time.Time) Result {
	lt := dt.In(s.location())
	if s.OverrideStatus != OverrideNone {
		state := StateStopped
		if s.OverrideStatus == OverrideRunning {
			state = StateRunning
		}
		return Result{State: state, PeriodName: OverridePeriodName}
	}
	result := s.evaluatePeriods(lt)
	if result.State == StateStopped && len(s.Periods) > 1 {
		// the prior-minute check confirms adjacency; only the future side's
		// identity is used
		previous := s.evaluatePeriods(lt.Add(-time.Minute))
		upcoming := s.evaluatePeriods(lt.Add(time.Minute))
		if previous.State == StateRunning && upcoming.State == StateRunning {
			return upcoming
		}
	}
	return result
}

// evaluatePeriods composes the raw period states at the local instant lt
// without the adjacency substitution.
func (s *Schedule) evaluatePeriods(lt time.Time) Result {
	composed := StateStopped
	var authoritative *PeriodReference
	for i := range s.Periods {
		ref := &s.Periods[i]
		state := ref.Period.State(lt)
		if state.priority() > composed.priority() {
			composed = state
		}
		if state == StateRunning && moreAuthoritative(ref, authoritative) {
			authoritative = ref
		}
	}
	if composed != StateRunning || authoritative == nil {
		return Result{State: composed}
	}
	return Result{
		State:       StateRunning,
		DesiredSize: authoritative.InstanceSize,
		PeriodName:  authoritative.Period.Name,
	}
}

// moreAuthoritative reports whether candidate outranks current: the period
// with the latest begintime wins, and a period without a begintime never
// outranks one with a defined begintime.
func moreAuthoritative(candidate, current *PeriodReference) bool {
	if current == nil {
		return true
	}
	if candidate.Period.BeginTime == nil {
		return false
	}
	if current.Period.BeginTime == nil {
		return true
	}
	return candidate.Period.BeginTime.minutes() > current.Period.BeginTime.minutes()
}

func (s *Schedule) location() *time.Location {
	if s.Timezone == nil {
		return time.UTC
	}
	return s.Timezone
}

// Validate enforces the schedule invariant: either an override status is
// set or the schedule has at least one period.
func (s *Schedule) Validate() error {
	if s.OverrideStatus == OverrideNone && len(s.Periods) == 0 {
		return fmt.Errorf("schedule must set override_status or reference at least one period")
	}
	if s.OverrideStatus != OverrideNone && s.OverrideStatus != OverrideRunning && s.OverrideStatus != OverrideStopped {
		return fmt.Errorf("override_status must be %q or %q, got %q", OverrideRunning, OverrideStopped, s.OverrideStatus)
	}
	return nil
}
