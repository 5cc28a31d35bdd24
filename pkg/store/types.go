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
	"fmt"
	"strings"
	"time"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
)

// Service is the kind of schedulable resource.
type Service string

const (
	ServiceEC2         Service = "ec2"
	ServiceRDS         Service = "rds"
	ServiceAutoScaling Service = "autoscaling"
)

// Target is the unit of dispatch: all registered resources of one service
// in one account and region are processed by one runner per cycle.
type Target struct {
	Account string  `json:"account"`
	Region  string  `json:"region"`
	Service Service `json:"service"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s/%s", t.Account, t.Region, t.Service)
}

// LastConfigured is the fingerprint of the scheduled-action configuration
// most recently written to an auto-scaling group. An unexpired fingerprint
// with an unchanged schedule hash means the group needs no reconfiguration.
type LastConfigured struct {
	LastUpdated  time.Time `json:"last_updated" dynamodbav:"last_updated"`
	MinSize      int32     `json:"min_size" dynamodbav:"min_size"`
	DesiredSize  int32     `json:"desired_size" dynamodbav:"desired_size"`
	MaxSize      int32     `json:"max_size" dynamodbav:"max_size"`
	ScheduleHash uint64    `json:"schedule_hash" dynamodbav:"schedule_hash"`
	ValidUntil   time.Time `json:"valid_until" dynamodbav:"valid_until"`
}

// RegisteredInstance is one resource the scheduler manages, keyed by
// (account, region, service, resource type, resource id). StoredState is
// the scheduler's memory of its last intent for the resource and is
// rewritten after every decision.
type RegisteredInstance struct {
	Account      string
	Region       string
	Service      Service
	ResourceType string
	ResourceID   string

	ARN          string
	ScheduleName string
	DisplayName  string
	StoredState  scheduling.InstanceState

	// LastConfigured is only set for auto-scaling groups.
	LastConfigured *LastConfigured
}

// Target returns the scheduling target the instance belongs to.
func (i *RegisteredInstance) Target() Target {
	return Target{Account: i.Account, Region: i.Region, Service: i.Service}
}

const resourceKeyPrefix = "resource"

// SortKey is the registry sort key,
// "resource#<region>#<service>#<resource_type>#<resource_id>". The prefix
// layout makes per-target queries a begins_with on the sort key.
func (i *RegisteredInstance) SortKey() string {
	return strings.Join([]string{resourceKeyPrefix, i.Region, string(i.Service), i.ResourceType, i.ResourceID}, "#")
}

// targetKeyPrefix is the sort-key prefix shared by every instance of a
// target, used for registry range queries.
func targetKeyPrefix(t Target) string {
	return strings.Join([]string{resourceKeyPrefix, t.Region, string(t.Service), ""}, "#")
}

// parseSortKey splits a registry sort key back into its components.
func parseSortKey(key string) (region string, service Service, resourceType string, resourceID string, err error) {
	parts := strings.SplitN(key, "#", 5)
	if len(parts) != 5 || parts[0] != resourceKeyPrefix {
		return "", "", "", "", fmt.Errorf("malformed registry sort key %q", key)
	}
	return parts[1], Service(parts[2]), parts[3], parts[4], nil
}

// MaintenanceWindow mirrors one provider-reported maintenance window.
// Uniqueness is by (account, region, name, window id); several windows may
// share a display name and a schedule honors all of them.
type MaintenanceWindow struct {
	Account           string
	Region            string
	WindowID          string
	Name              string
	Timezone          string
	NextExecutionTime *time.Time
	DurationHours     int32
}

// NameID is the mirror sort key, "<name>:<window_id>".
func (w *MaintenanceWindow) NameID() string {
	return w.Name + ":" + w.WindowID
}

// AccountRegion is the mirror partition key.
func (w *MaintenanceWindow) AccountRegion() string {
	return w.Account + ":" + w.Region
}

// IsRunningAt reports whether the window's current execution covers dt.
// The margin widens the window start so resources are up before the
// provider begins the execution (polling interval plus a fixed lead).
func (w *MaintenanceWindow) IsRunningAt(dt time.Time, margin time.Duration) bool {
	if w.NextExecutionTime == nil {
		return false
	}
	begin := w.NextExecutionTime.Add(-margin)
	end := w.NextExecutionTime.Add(time.Duration(w.DurationHours) * time.Hour)
	return !dt.Before(begin) && dt.Before(end)
}

// Equal reports field equality, the "unchanged" case of mirror
// reconciliation.
func (w *MaintenanceWindow) Equal(other *MaintenanceWindow) bool {
	if w.Account != other.Account || w.Region != other.Region ||
		w.WindowID != other.WindowID || w.Name != other.Name ||
		w.Timezone != other.Timezone || w.DurationHours != other.DurationHours {
		return false
	}
	if (w.NextExecutionTime == nil) != (other.NextExecutionTime == nil) {
		return false
	}
	return w.NextExecutionTime == nil || w.NextExecutionTime.Equal(*other.NextExecutionTime)
}
