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

// Package scheduling contains the orchestrator that fans a scheduling
// cycle out over (account, region, service) targets and the runner that
// processes one target per invocation.
package scheduling

import (
	"fmt"
	"time"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

// ActionRun is the only request action the runner accepts.
const ActionRun = "scheduler:run"

// Request is the dispatch document the orchestrator sends to a runner,
// one per target per cycle. When the configuration fits under the payload
// ceiling the definitions are inlined so the runner never reads the config
// table; otherwise only the referenced schedule names travel and the
// runner loads the table itself.
type Request struct {
	Action       string        `json:"action"`
	RequestID    string        `json:"request_id"`
	Account      string        `json:"account"`
	Region       string        `json:"region"`
	Service      store.Service `json:"service"`
	CurrentDT    time.Time     `json:"current_dt"`
	DispatchTime time.Time     `json:"dispatch_time"`

	Schedules     []scheduling.ScheduleDefinition `json:"schedules,omitempty"`
	Periods       []scheduling.PeriodDefinition   `json:"periods,omitempty"`
	ScheduleNames []string                        `json:"schedule_names,omitempty"`
}

// Target returns the scheduling target the request addresses.
func (r *Request) Target() store.Target {
	return store.Target{Account: r.Account, Region: r.Region, Service: r.Service}
}

// Validate rejects documents a runner must not act on.
func (r *Request) Validate() error {
	if r.Action != ActionRun {
		return fmt.Errorf("unsupported request action %q", r.Action)
	}
	if r.Account == "" || r.Region == "" {
		return fmt.Errorf("request must carry an account and region")
	}
	switch r.Service {
	case store.ServiceEC2, store.ServiceRDS, store.ServiceAutoScaling:
		return nil
	default:
		return fmt.Errorf("unsupported service %q", r.Service)
	}
}
