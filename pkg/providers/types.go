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

// Package providers defines the contract between the per-target runner and
// the per-service adapters that talk to EC2, RDS, and Auto Scaling.
package providers

import (
	"context"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling/decision"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

// RuntimeInfo is the provider-reported state of one resource at the start
// of a cycle.
type RuntimeInfo struct {
	ResourceID string
	ARN        string
	Name       string
	// State is the provider-native state name, for events and logs.
	State   string
	Running bool
	Stopped bool
	// InstanceType is the resource's current size, empty for services
	// without a size notion.
	InstanceType string
}

// Outcome reports what an adapter actually did for a decision. ActionTaken
// can differ from the requested action: a start that also resized reports
// Configure, and a start that exhausted the capacity fallback list reports
// the StartFailed stored state without an error.
type Outcome struct {
	ActionTaken scheduling.RequestedAction
	NewState    scheduling.InstanceState
}

// Adapter executes scheduling decisions against one AWS service within one
// target. Implementations must be safe to use from a single runner
// goroutine; they are never shared across targets.
type Adapter interface {
	// Service identifies the adapter's service kind.
	Service() store.Service
	// Describe returns runtime info for the registered instances, keyed by
	// resource id. Resources the provider no longer knows are absent from
	// the result.
	Describe(ctx context.Context, instances []*store.RegisteredInstance) (map[string]RuntimeInfo, error)
	// Execute performs the decided action and returns the stored state to
	// persist. A returned error means the action did not reach a terminal
	// result and the stored state must not advance.
	Execute(ctx context.Context, instance *store.RegisteredInstance, info RuntimeInfo, d decision.Decision, schedule *scheduling.Schedule) (Outcome, error)
	// TagError writes an informational error tag on the resource so
	// operators can spot misconfiguration without reading logs. Best
	// effort; implementations log and swallow failures.
	TagError(ctx context.Context, instance *store.RegisteredInstance, code, message string)
}
