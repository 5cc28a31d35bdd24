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

package ec2

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
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
	describeBatchSize = 100
	apiRetryAttempts  = 3
)

// Adapter schedules EC2 instances: describe by id, start with an
// instance-type fallback list, stop with optional hibernation, and
// resize-before-start when the authoritative period requests a size.
type Adapter struct {
	api         sdk.EC2API
	startedTags []providers.TagTemplate
	stoppedTags []providers.TagTemplate
}

func NewAdapter(api sdk.EC2API, startedTags, stoppedTags []providers.TagTemplate) *Adapter {
	return &Adapter{api: api, startedTags: startedTags, stoppedTags: stoppedTags}
}

func (a *Adapter) Service() store.Service {
	return store.ServiceEC2
}

func (a *Adapter) Describe(ctx context.Context, instances []*store.RegisteredInstance) (map[string]providers.RuntimeInfo, error) {
	infos := map[string]providers.RuntimeInfo{}
	for _, batch := range lo.Chunk(instances, describeBatchSize) {
		ids := lo.Map(batch, func(i *store.RegisteredInstance, _ int) string { return i.ResourceID })
		out, err := a.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: ids})
		if awserrors.IsNotFound(err) {
			// a single stale id fails the whole batch; fall back to
			// describing individually so the rest of the batch survives
			if err = a.describeIndividually(ctx, ids, infos); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("describing ec2 instances, %w", err)
		}
		collectReservations(out, infos)
	}
	return infos, nil
}

func (a *Adapter) describeIndividually(ctx context.Context, ids []string, infos map[string]providers.RuntimeInfo) error {
	for _, id := range ids {
		out, err := a.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}})
		if awserrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("describing ec2 instance %s, %w", id, err)
		}
		collectReservations(out, infos)
	}
	return nil
}

func collectReservations(out *ec2.DescribeInstancesOutput, infos map[string]providers.RuntimeInfo) {
	for _, reservation := range out.Reservations {
		for _, instance := range reservation.Instances {
			id := aws.ToString(instance.InstanceId)
			stateName := instance.State.Name
			infos[id] = providers.RuntimeInfo{
				ResourceID:   id,
				Name:         nameFromTags(instance.Tags),
				State:        string(stateName),
				Running:      stateName == ec2types.InstanceStateNameRunning,
				Stopped:      stateName == ec2types.InstanceStateNameStopped,
				InstanceType: string(instance.InstanceType),
			}
		}
	}
}

func nameFromTags(tags []ec2types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}

func (a *Adapter) Execute(ctx context.Context, instance *store.RegisteredInstance, info providers.RuntimeInfo, d decision.Decision, schedule *scheduling.Schedule) (providers.Outcome, error) {
	switch d.Action {
	case scheduling.ActionStart:
		return a.start(ctx, instance, info, d, schedule)
	case scheduling.ActionStop:
		return a.stop(ctx, instance, info, d, schedule)
	default:
		return providers.Outcome{ActionTaken: scheduling.ActionDoNothing, NewState: d.NewState}, nil
	}
}

// start brings the instance up, resizing first when the authoritative
// period requested a size. The desired size may be a comma-separated
// priority list; each entry is tried in order when the provider reports an
// insufficient-capacity class error, and exhausting the list marks the
// instance StartFailed without raising.
func (a *Adapter) start(ctx context.Context, instance *store.RegisteredInstance, info providers.RuntimeInfo, d decision.Decision, schedule *scheduling.Schedule) (providers.Outcome, error) {
	logger := logging.FromContext(ctx).With("instance", instance.ResourceID)
	if info.Running {
		return providers.Outcome{ActionTaken: scheduling.ActionDoNothing, NewState: scheduling.InstanceStateRunning}, nil
	}
	candidates := []string{""}
	if d.Schedule.DesiredSize != "" {
		candidates = strings.Split(d.Schedule.DesiredSize, ",")
	}
	resized := false
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && candidate != info.InstanceType {
			if err := a.resize(ctx, instance.ResourceID, candidate); err != nil {
				logger.With("instance-type", candidate).Errorf("resizing before start: %s", err)
				continue
			}
			resized = true
		}
		err := retryTransient(ctx, func() error {
			_, startErr := a.api.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{instance.ResourceID}})
			return startErr
		})
		if awserrors.IsUnfulfillableCapacity(err) {
			logger.With("instance-type", lo.CoalesceOrEmpty(candidate, info.InstanceType)).Info("insufficient capacity, trying next instance type")
			continue
		}
		if err != nil {
			return providers.Outcome{}, fmt.Errorf("starting ec2 instance %s, %w", instance.ResourceID, err)
		}
		a.applyResultTags(ctx, instance, schedule, a.startedTags, a.stoppedTags)
		newState := scheduling.InstanceStateRunning
		action := scheduling.ActionStart
		if resized {
			newState = scheduling.InstanceStateConfigured
			action = scheduling.ActionConfigure
		}
		return providers.Outcome{ActionTaken: action, NewState: newState}, nil
	}
	logger.Warn("exhausted instance type candidates, marking start failed")
	return providers.Outcome{ActionTaken: scheduling.ActionStart, NewState: scheduling.InstanceStateStartFailed}, nil
}

func (a *Adapter) stop(ctx context.Context, instance *store.RegisteredInstance, info providers.RuntimeInfo, d decision.Decision, schedule *scheduling.Schedule) (providers.Outcome, error) {
	logger := logging.FromContext(ctx).With("instance", instance.ResourceID)
	if info.Stopped {
		return providers.Outcome{ActionTaken: scheduling.ActionDoNothing, NewState: scheduling.InstanceStateStopped}, nil
	}
	err := retryTransient(ctx, func() error {
		_, stopErr := a.api.StopInstances(ctx, &ec2.StopInstancesInput{
			InstanceIds: []string{instance.ResourceID},
			Hibernate:   aws.Bool(schedule.Hibernate),
		})
		return stopErr
	})
	if err != nil && schedule.Hibernate && awserrors.IsHibernationUnsupported(err) {
		logger.Info("hibernation not supported, stopping without it")
		err = retryTransient(ctx, func() error {
			_, stopErr := a.api.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{instance.ResourceID}})
			return stopErr
		})
	}
	if err != nil {
		return providers.Outcome{}, fmt.Errorf("stopping ec2 instance %s, %w", instance.ResourceID, err)
	}
	a.applyResultTags(ctx, instance, schedule, a.stoppedTags, a.startedTags)
	return providers.Outcome{ActionTaken: scheduling.ActionStop, NewState: scheduling.InstanceStateStopped}, nil
}

func (a *Adapter) resize(ctx context.Context, id, instanceType string) error {
	_, err := a.api.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId:   aws.String(id),
		InstanceType: &ec2types.AttributeValue{Value: aws.String(instanceType)},
	})
	return err
}

// applyResultTags replaces the counterpart marker tags with the freshly
// resolved set. Best effort; a tagging failure never fails the action.
func (a *Adapter) applyResultTags(ctx context.Context, instance *store.RegisteredInstance, schedule *scheduling.Schedule, apply, remove []providers.TagTemplate) {
	logger := logging.FromContext(ctx).With("instance", instance.ResourceID)
	lt := time.Now().In(scheduleLocation(schedule))
	if len(remove) > 0 {
		keys := lo.Map(remove, func(t providers.TagTemplate, _ int) ec2types.Tag {
			return ec2types.Tag{Key: aws.String(t.Key)}
		})
		if _, err := a.api.DeleteTags(ctx, &ec2.DeleteTagsInput{Resources: []string{instance.ResourceID}, Tags: keys}); err != nil {
			logger.Errorf("removing result tags: %s", err)
		}
	}
	if len(apply) > 0 {
		tags := lo.Map(apply, func(t providers.TagTemplate, _ int) ec2types.Tag {
			key, value := t.Resolve(lt)
			return ec2types.Tag{Key: aws.String(key), Value: aws.String(value)}
		})
		if _, err := a.api.CreateTags(ctx, &ec2.CreateTagsInput{Resources: []string{instance.ResourceID}, Tags: tags}); err != nil {
			logger.Errorf("applying result tags: %s", err)
		}
	}
}

func (a *Adapter) TagError(ctx context.Context, instance *store.RegisteredInstance, code, message string) {
	if _, err := a.api.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{instance.ResourceID},
		Tags: []ec2types.Tag{{
			Key:   aws.String(providers.ErrorTagKey),
			Value: aws.String(providers.ErrorTagValue(code, message, time.Now())),
		}},
	}); err != nil {
		logging.FromContext(ctx).With("instance", instance.ResourceID).Errorf("tagging error state: %s", err)
	}
}

func scheduleLocation(schedule *scheduling.Schedule) *time.Location {
	if schedule == nil || schedule.Timezone == nil {
		return time.UTC
	}
	return schedule.Timezone
}

// retryTransient retries throttled calls a few times with backoff; all
// other errors surface immediately.
func retryTransient(ctx context.Context, operation func() error) error {
	return retry.Do(
		operation,
		retry.Context(ctx),
		retry.Attempts(apiRetryAttempts),
		retry.RetryIf(awserrors.IsThrottled),
		retry.LastErrorOnly(true),
	)
}
