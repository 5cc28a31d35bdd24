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

// Package autoscaling schedules auto-scaling groups by writing recurring
// scheduled actions into the group rather than starting or stopping
// anything directly. The group provider then scales on its own clock;
// the adapter only reconciles the actions when the schedule fingerprint
// changes or its validity window expires.
package autoscaling

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/samber/lo"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
	awserrors "github.com/aws-solutions/instance-scheduler-on-aws/pkg/errors"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling/decision"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

const (
	// ResourceTypeGroup is the registry resource type this adapter serves.
	ResourceTypeGroup = "group"

	// actionNamePrefix marks the scheduled actions owned by the scheduler;
	// operator-written actions are never touched.
	actionNamePrefix = "instance-scheduler-"

	describeBatchSize = 50
)

type groupRuntime struct {
	minSize     int32
	maxSize     int32
	desired     int32
	arn         string
	displayName string
}

type Adapter struct {
	api sdk.AutoScalingAPI
	// ttl bounds how long a written action set stays valid without
	// reconfirmation, so drifted or manually deleted actions heal.
	ttl time.Duration

	groups map[string]*groupRuntime
}

func NewAdapter(api sdk.AutoScalingAPI, ttl time.Duration) *Adapter {
	return &Adapter{api: api, ttl: ttl, groups: map[string]*groupRuntime{}}
}

func (a *Adapter) Service() store.Service {
	return store.ServiceAutoScaling
}

func (a *Adapter) Describe(ctx context.Context, instances []*store.RegisteredInstance) (map[string]providers.RuntimeInfo, error) {
	infos := map[string]providers.RuntimeInfo{}
	for _, batch := range lo.Chunk(instances, describeBatchSize) {
		names := lo.Map(batch, func(i *store.RegisteredInstance, _ int) string { return i.ResourceID })
		var nextToken *string
		for {
			out, err := a.api.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
				AutoScalingGroupNames: names,
				NextToken:             nextToken,
			})
			if err != nil {
				return nil, fmt.Errorf("describing auto scaling groups, %w", err)
			}
			for _, group := range out.AutoScalingGroups {
				name := aws.ToString(group.AutoScalingGroupName)
				desired := aws.ToInt32(group.DesiredCapacity)
				a.groups[name] = &groupRuntime{
					minSize:     aws.ToInt32(group.MinSize),
					maxSize:     aws.ToInt32(group.MaxSize),
					desired:     desired,
					arn:         aws.ToString(group.AutoScalingGroupARN),
					displayName: name,
				}
				infos[name] = providers.RuntimeInfo{
					ResourceID: name,
					ARN:        aws.ToString(group.AutoScalingGroupARN),
					Name:       name,
					State:      fmt.Sprintf("desired=%d", desired),
					Running:    desired > 0,
					Stopped:    desired == 0,
				}
			}
			if nextToken = out.NextToken; nextToken == nil {
				break
			}
		}
	}
	return infos, nil
}

// Execute reconciles the group's scheduled actions against the schedule.
// The decision's start/stop verdict is not acted on directly: the written
// actions scale the group at period boundaries on the provider's clock.
// The reconciled configuration is stamped into instance.LastConfigured;
// the runner persists it with the stored state.
func (a *Adapter) Execute(ctx context.Context, instance *store.RegisteredInstance, info providers.RuntimeInfo, d decision.Decision, schedule *scheduling.Schedule) (providers.Outcome, error) {
	logger := logging.FromContext(ctx).With("group", instance.ResourceID)
	group := a.groups[instance.ResourceID]
	if group == nil {
		return providers.Outcome{}, fmt.Errorf("group %s was not described this cycle", instance.ResourceID)
	}
	if schedule == nil {
		return providers.Outcome{ActionTaken: scheduling.ActionDoNothing, NewState: d.NewState}, nil
	}

	sizes := a.runningSizes(instance, group, d)
	desired, err := desiredActions(instance.ResourceID, schedule, sizes)
	if err != nil {
		return providers.Outcome{}, &awserrors.UnsupportedResourceError{ResourceID: instance.ResourceID, Reason: err.Error()}
	}
	hash, err := fingerprint(schedule, sizes)
	if err != nil {
		return providers.Outcome{}, fmt.Errorf("fingerprinting schedule %s, %w", schedule.Name, err)
	}
	now := time.Now()
	if lc := instance.LastConfigured; lc != nil && lc.ScheduleHash == hash && now.Before(lc.ValidUntil) {
		return providers.Outcome{ActionTaken: scheduling.ActionDoNothing, NewState: scheduling.InstanceStateConfigured}, nil
	}

	existing, err := a.listOwnedActions(ctx, instance.ResourceID)
	if err != nil {
		return providers.Outcome{}, err
	}
	desiredNames := lo.Map(desired, func(action *autoscaling.PutScheduledUpdateGroupActionInput, _ int) string {
		return aws.ToString(action.ScheduledActionName)
	})
	for _, stale := range existing {
		if lo.Contains(desiredNames, stale) {
			continue
		}
		if _, err := a.api.DeleteScheduledAction(ctx, &autoscaling.DeleteScheduledActionInput{
			AutoScalingGroupName: aws.String(instance.ResourceID),
			ScheduledActionName:  aws.String(stale),
		}); err != nil {
			return providers.Outcome{}, fmt.Errorf("deleting stale scheduled action %s, %w", stale, err)
		}
	}
	for _, action := range desired {
		if _, err := a.api.PutScheduledUpdateGroupAction(ctx, action); err != nil {
			return providers.Outcome{}, fmt.Errorf("putting scheduled action %s, %w", aws.ToString(action.ScheduledActionName), err)
		}
	}
	logger.With("actions", len(desired), "schedule", schedule.Name).Info("reconciled scheduled actions")

	instance.LastConfigured = &store.LastConfigured{
		LastUpdated:  now,
		MinSize:      sizes.minSize,
		DesiredSize:  sizes.desired,
		MaxSize:      sizes.maxSize,
		ScheduleHash: hash,
		ValidUntil:   now.Add(a.ttl),
	}
	return providers.Outcome{ActionTaken: scheduling.ActionConfigure, NewState: scheduling.InstanceStateConfigured}, nil
}

// runningSizes picks the sizes the start actions restore: the group's
// current sizes while it is up, otherwise the sizes captured when it was
// last configured. A schedule-requested numeric size overrides the desired
// capacity and widens the max if needed.
func (a *Adapter) runningSizes(instance *store.RegisteredInstance, group *groupRuntime, d decision.Decision) groupSizes {
	sizes := groupSizes{minSize: group.minSize, desired: group.desired, maxSize: group.maxSize}
	if group.desired == 0 {
		if lc := instance.LastConfigured; lc != nil && lc.DesiredSize > 0 {
			sizes = groupSizes{minSize: lc.MinSize, desired: lc.DesiredSize, maxSize: lc.MaxSize}
		} else {
			sizes.desired = lo.Max([]int32{group.minSize, 1})
			sizes.maxSize = lo.Max([]int32{group.maxSize, sizes.desired})
		}
	}
	if requested, err := strconv.ParseInt(strings.TrimSpace(d.Schedule.DesiredSize), 10, 32); err == nil && requested > 0 {
		sizes.desired = int32(requested)
		sizes.maxSize = lo.Max([]int32{sizes.maxSize, sizes.desired})
	}
	return sizes
}

type groupSizes struct {
	minSize int32
	desired int32
	maxSize int32
}

// desiredActions renders one start and one stop action per period carrying
// the respective boundary time. Periods without both boundaries contribute
// only the side they define.
func desiredActions(groupName string, schedule *scheduling.Schedule, sizes groupSizes) ([]*autoscaling.PutScheduledUpdateGroupActionInput, error) {
	timezone := "UTC"
	if schedule.Timezone != nil {
		timezone = schedule.Timezone.String()
	}
	var actions []*autoscaling.PutScheduledUpdateGroupActionInput
	for _, ref := range schedule.Periods {
		period := ref.Period
		if period.BeginTime != nil {
			recurrence, err := cronRecurrence(*period.BeginTime, period)
			if err != nil {
				return nil, fmt.Errorf("period %s: %w", period.Name, err)
			}
			actions = append(actions, &autoscaling.PutScheduledUpdateGroupActionInput{
				AutoScalingGroupName: aws.String(groupName),
				ScheduledActionName:  aws.String(actionName(schedule.Name, period.Name, "start")),
				Recurrence:           aws.String(recurrence),
				TimeZone:             aws.String(timezone),
				MinSize:              aws.Int32(sizes.minSize),
				DesiredCapacity:      aws.Int32(sizes.desired),
				MaxSize:              aws.Int32(sizes.maxSize),
			})
		}
		if period.EndTime != nil {
			recurrence, err := cronRecurrence(*period.EndTime, period)
			if err != nil {
				return nil, fmt.Errorf("period %s: %w", period.Name, err)
			}
			actions = append(actions, &autoscaling.PutScheduledUpdateGroupActionInput{
				AutoScalingGroupName: aws.String(groupName),
				ScheduledActionName:  aws.String(actionName(schedule.Name, period.Name, "stop")),
				Recurrence:           aws.String(recurrence),
				TimeZone:             aws.String(timezone),
				MinSize:              aws.Int32(0),
				DesiredCapacity:      aws.Int32(0),
			})
		}
	}
	return actions, nil
}

func actionName(scheduleName, periodName, side string) string {
	return actionNamePrefix + scheduleName + "-" + periodName + "-" + side
}

// listOwnedActions returns the names of the group's scheduled actions the
// scheduler wrote on previous cycles.
func (a *Adapter) listOwnedActions(ctx context.Context, groupName string) ([]string, error) {
	var names []string
	var nextToken *string
	for {
		out, err := a.api.DescribeScheduledActions(ctx, &autoscaling.DescribeScheduledActionsInput{
			AutoScalingGroupName: aws.String(groupName),
			NextToken:            nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("describing scheduled actions of %s, %w", groupName, err)
		}
		for _, action := range out.ScheduledUpdateGroupActions {
			if name := aws.ToString(action.ScheduledActionName); strings.HasPrefix(name, actionNamePrefix) {
				names = append(names, name)
			}
		}
		if nextToken = out.NextToken; nextToken == nil {
			break
		}
	}
	return names, nil
}

// fingerprint hashes everything that shapes the written action set so any
// schedule or size change invalidates last_configured.
func fingerprint(schedule *scheduling.Schedule, sizes groupSizes) (uint64, error) {
	type periodFingerprint struct {
		Begin     string
		End       string
		Size      string
		Weekdays  []string
		Monthdays []string
		Months    []string
	}
	type scheduleFingerprint struct {
		Timezone string
		MinSize  int32
		Desired  int32
		MaxSize  int32
		Periods  []periodFingerprint
	}
	fp := scheduleFingerprint{
		Timezone: lo.TernaryF(schedule.Timezone == nil, func() string { return "UTC" }, func() string { return schedule.Timezone.String() }),
		MinSize:  sizes.minSize,
		Desired:  sizes.desired,
		MaxSize:  sizes.maxSize,
	}
	for _, ref := range schedule.Periods {
		p := periodFingerprint{Size: ref.InstanceSize}
		if ref.Period.BeginTime != nil {
			p.Begin = ref.Period.BeginTime.String()
		}
		if ref.Period.EndTime != nil {
			p.End = ref.Period.EndTime.String()
		}
		p.Weekdays = scheduling.Render(ref.Period.Weekdays)
		p.Monthdays = scheduling.Render(ref.Period.Monthdays)
		p.Months = scheduling.Render(ref.Period.Months)
		fp.Periods = append(fp.Periods, p)
	}
	return hashstructure.Hash(fp, hashstructure.FormatV2, nil)
}

// TagError writes the error tag onto the group; scheduled-action failures
// would otherwise only be visible in runner logs.
func (a *Adapter) TagError(ctx context.Context, instance *store.RegisteredInstance, code, message string) {
	if _, err := a.api.CreateOrUpdateTags(ctx, &autoscaling.CreateOrUpdateTagsInput{
		Tags: []astypes.Tag{{
			ResourceId:        aws.String(instance.ResourceID),
			ResourceType:      aws.String("auto-scaling-group"),
			Key:               aws.String(providers.ErrorTagKey),
			Value:             aws.String(providers.ErrorTagValue(code, message, time.Now())),
			PropagateAtLaunch: aws.Bool(false),
		}},
	}); err != nil {
		logging.FromContext(ctx).With("group", instance.ResourceID).Errorf("tagging error state: %s", err)
	}
}
