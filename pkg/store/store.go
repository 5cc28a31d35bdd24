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

// Package store persists the scheduler's cross-cycle state: schedule and
// period definitions, the resource registry, and the maintenance-window
// mirror. Everything else is recomputed from these each cycle.
package store

import (
	"context"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
)

// ConfigStore holds schedule and period definitions.
type ConfigStore interface {
	GetSchedules(ctx context.Context) ([]scheduling.ScheduleDefinition, error)
	GetPeriods(ctx context.Context) ([]scheduling.PeriodDefinition, error)
	PutSchedule(ctx context.Context, def scheduling.ScheduleDefinition) error
	PutPeriod(ctx context.Context, def scheduling.PeriodDefinition) error
	DeleteSchedule(ctx context.Context, name string) error
	DeletePeriod(ctx context.Context, name string) error
}

// Registry tracks the resources the scheduler manages and owns their
// stored state.
type Registry interface {
	// List returns every registered instance across all accounts.
	List(ctx context.Context) ([]*RegisteredInstance, error)
	// ListTarget returns the registered instances of one scheduling target.
	ListTarget(ctx context.Context, target Target) ([]*RegisteredInstance, error)
	// Register creates the instance record, failing if it already exists.
	Register(ctx context.Context, instance *RegisteredInstance) error
	// Put overwrites the instance record.
	Put(ctx context.Context, instance *RegisteredInstance) error
	// SetState rewrites only the stored state of the instance record.
	SetState(ctx context.Context, instance *RegisteredInstance, state scheduling.InstanceState) error
	// Deregister removes the instance record.
	Deregister(ctx context.Context, instance *RegisteredInstance) error
}

// MaintenanceWindowStore is the persistent mirror of provider maintenance
// windows; it is what lets an actively running window survive the provider
// no longer advertising it.
type MaintenanceWindowStore interface {
	List(ctx context.Context, account, region string) ([]*MaintenanceWindow, error)
	Put(ctx context.Context, window *MaintenanceWindow) error
	Delete(ctx context.Context, window *MaintenanceWindow) error
}
