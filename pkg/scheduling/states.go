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

// ScheduleState is the state a schedule prescribes at an instant. Any
// means "no opinion": a period outside its begin/end window but inside
// its recurrence does not force a running resource to stop.
type ScheduleState string

const (
	StateRunning ScheduleState = "running"
	StateStopped ScheduleState = "stopped"
	StateAny     ScheduleState = "any"
)

// priority orders schedule states for composition; the highest-priority
// state among a schedule's periods wins.
func (s ScheduleState) priority() int {
	switch s {
	case StateRunning:
		return 2
	case StateAny:
		return 1
	default:
		return 0
	}
}

// InstanceState is the scheduler's stored memory of what it last intended
// for a resource. It is distinct from the resource's actual runtime state.
type InstanceState string

const (
	InstanceStateUnknown       InstanceState = "unknown"
	InstanceStateRunning       InstanceState = "running"
	InstanceStateStopped       InstanceState = "stopped"
	InstanceStateRetainRunning InstanceState = "retain_running"
	InstanceStateStartFailed   InstanceState = "start_failed"
	InstanceStateConfigured    InstanceState = "configured"
	InstanceStateAny           InstanceState = "any"
)

// RequestedAction is the decision function's verdict for one resource in
// one cycle.
type RequestedAction string

const (
	ActionDoNothing RequestedAction = "DoNothing"
	ActionStart     RequestedAction = "Start"
	ActionStop      RequestedAction = "Stop"
	ActionConfigure RequestedAction = "Configure"
)

// OverrideStatus short-circuits all period logic of a schedule.
type OverrideStatus string

const (
	OverrideNone    OverrideStatus = ""
	OverrideRunning OverrideStatus = "running"
	OverrideStopped OverrideStatus = "stopped"
)
