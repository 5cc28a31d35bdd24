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

// Package decision maps (stored state, schedule, instant, maintenance
// windows) onto the action the scheduler should take for one resource and
// the stored state to persist afterwards. It is a pure function over its
// inputs; executing the action and persisting the state are the runner's
// job.
package decision

import (
	"fmt"
	"time"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
)

// Decision is the verdict for a single resource in a single cycle.
type Decision struct {
	Action   scheduling.RequestedAction
	NewState scheduling.InstanceState
	Reason   string
	// Schedule is the evaluation result the decision was based on; the
	// adapters use its DesiredSize for resize-before-start.
	Schedule scheduling.Result
}

// Decide evaluates the schedule at dt and dispatches on the stored state.
// Active maintenance windows are synthetic enforced schedules; when the
// owning schedule opts in and any window is running, the resource is
// started regardless of what the periods say.
func Decide(stored scheduling.InstanceState, schedule *scheduling.Schedule, dt time.Time, maintenanceWindows []*scheduling.Schedule) Decision {
	if schedule.UseMaintenanceWindow {
		for _, mw := range maintenanceWindows {
			if result := mw.Evaluate(dt); result.State == scheduling.StateRunning {
				return Decision{
					Action:   scheduling.ActionStart,
					NewState: scheduling.InstanceStateRunning,
					Reason:   fmt.Sprintf("in maintenance window %q", mw.Name),
					Schedule: result,
				}
			}
		}
	}

	result := schedule.Evaluate(dt)
	switch result.State {
	case scheduling.StateStopped:
		return decideStopped(stored, schedule, result)
	case scheduling.StateRunning:
		return decideRunning(stored, schedule, result)
	default:
		return Decision{Action: scheduling.ActionDoNothing, NewState: scheduling.InstanceStateAny, Schedule: result}
	}
}

func decideStopped(stored scheduling.InstanceState, schedule *scheduling.Schedule, result scheduling.Result) Decision {
	d := Decision{NewState: scheduling.InstanceStateStopped, Schedule: result}
	switch {
	case stored == scheduling.InstanceStateUnknown && !schedule.StopNewInstances:
		d.Action = scheduling.ActionDoNothing
		d.Reason = "stop_new_instances disabled"
	case schedule.Enforced:
		d.Action = scheduling.ActionStop
		d.Reason = "enforced"
	case stored == scheduling.InstanceStateRetainRunning && schedule.RetainRunning:
		// the manual-start marker is consumed by this transition
		d.Action = scheduling.ActionDoNothing
		d.Reason = "retained running through period end"
	case stored != scheduling.InstanceStateStopped:
		d.Action = scheduling.ActionStop
		d.Reason = "transition"
	default:
		d.Action = scheduling.ActionDoNothing
	}
	return d
}

func decideRunning(stored scheduling.InstanceState, schedule *scheduling.Schedule, result scheduling.Result) Decision {
	d := Decision{NewState: scheduling.InstanceStateRunning, Schedule: result}
	switch {
	case schedule.Enforced:
		d.Action = scheduling.ActionStart
		d.Reason = "enforced"
	case schedule.RetainRunning && stored == scheduling.InstanceStateStopped:
		// started manually during a running period; remember it so the
		// period end does not stop it
		d.Action = scheduling.ActionDoNothing
		d.NewState = scheduling.InstanceStateRetainRunning
		d.Reason = "manual start retained"
	case stored == scheduling.InstanceStateRetainRunning:
		d.Action = scheduling.ActionDoNothing
		d.NewState = scheduling.InstanceStateRetainRunning
	case stored == scheduling.InstanceStateStartFailed:
		d.Action = scheduling.ActionStart
		d.Reason = "retrying failed start"
	case stored != scheduling.InstanceStateRunning:
		d.Action = scheduling.ActionStart
		d.Reason = "transition"
	default:
		d.Action = scheduling.ActionDoNothing
	}
	return d
}
