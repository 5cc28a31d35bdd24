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

// Package rds schedules RDS database instances and clusters. Aurora
// engines are only schedulable through their cluster; a cluster member
// registered as a plain instance is rejected as unsupported rather than
// silently half-stopped.
package rds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
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
	// ResourceTypeInstance and ResourceTypeCluster are the registry
	// resource types this adapter serves.
	ResourceTypeInstance = "instance"
	ResourceTypeCluster  = "cluster"

	describeFilterBatchSize = 50
	apiRetryAttempts        = 3

	statusAvailable = "available"
	statusStopped   = "stopped"
)

// clusterOnlyEnginePrefixes are engines whose members cannot be started or
// stopped individually.
var clusterOnlyEnginePrefixes = []string{"aurora", "docdb", "neptune"}

type Adapter struct {
	api         sdk.RDSAPI
	startedTags []providers.TagTemplate
	stoppedTags []providers.TagTemplate

	// engines remembers the engine seen per resource id during Describe so
	// Execute can gate unsupported shapes. Populated once per cycle.
	engines map[string]string
}

func NewAdapter(api sdk.RDSAPI, startedTags, stoppedTags []providers.TagTemplate) *Adapter {
	return &Adapter{api: api, startedTags: startedTags, stoppedTags: stoppedTags, engines: map[string]string{}}
}

func (a *Adapter) Service() store.Service {
	return store.ServiceRDS
}

func (a *Adapter) Describe(ctx context.Context, instances []*store.RegisteredInstance) (map[string]providers.RuntimeInfo, error) {
	infos := map[string]providers.RuntimeInfo{}
	byType := lo.GroupBy(instances, func(i *store.RegisteredInstance) string { return i.ResourceType })
	if err := a.describeInstances(ctx, byType[ResourceTypeInstance], infos); err != nil {
		return nil, err
	}
	if err := a.describeClusters(ctx, byType[ResourceTypeCluster], infos); err != nil {
		return nil, err
	}
	return infos, nil
}

func (a *Adapter) describeInstances(ctx context.Context, instances []*store.RegisteredInstance, infos map[string]providers.RuntimeInfo) error {
	for _, batch := range lo.Chunk(instances, describeFilterBatchSize) {
		ids := lo.Map(batch, func(i *store.RegisteredInstance, _ int) string { return i.ResourceID })
		var marker *string
		for {
			out, err := a.api.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
				Filters: []rdstypes.Filter{{Name: aws.String("db-instance-id"), Values: ids}},
				Marker:  marker,
			})
			if err != nil {
				return fmt.Errorf("describing db instances, %w", err)
			}
			for _, db := range out.DBInstances {
				id := aws.ToString(db.DBInstanceIdentifier)
				status := aws.ToString(db.DBInstanceStatus)
				a.engines[id] = aws.ToString(db.Engine)
				infos[id] = providers.RuntimeInfo{
					ResourceID:   id,
					ARN:          aws.ToString(db.DBInstanceArn),
					Name:         id,
					State:        status,
					Running:      status == statusAvailable,
					Stopped:      status == statusStopped,
					InstanceType: aws.ToString(db.DBInstanceClass),
				}
			}
			if marker = out.Marker; marker == nil {
				break
			}
		}
	}
	return nil
}

func (a *Adapter) describeClusters(ctx context.Context, instances []*store.RegisteredInstance, infos map[string]providers.RuntimeInfo) error {
	for _, batch := range lo.Chunk(instances, describeFilterBatchSize) {
		ids := lo.Map(batch, func(i *store.RegisteredInstance, _ int) string { return i.ResourceID })
		var marker *string
		for {
			out, err := a.api.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{
				Filters: []rdstypes.Filter{{Name: aws.String("db-cluster-id"), Values: ids}},
				Marker:  marker,
			})
			if err != nil {
				return fmt.Errorf("describing db clusters, %w", err)
			}
			for _, cluster := range out.DBClusters {
				id := aws.ToString(cluster.DBClusterIdentifier)
				status := aws.ToString(cluster.Status)
				infos[id] = providers.RuntimeInfo{
					ResourceID: id,
					ARN:        aws.ToString(cluster.DBClusterArn),
					Name:       id,
					State:      status,
					Running:    status == statusAvailable,
					Stopped:    status == statusStopped,
				}
			}
			if marker = out.Marker; marker == nil {
				break
			}
		}
	}
	return nil
}

func (a *Adapter) Execute(ctx context.Context, instance *store.RegisteredInstance, info providers.RuntimeInfo, d decision.Decision, schedule *scheduling.Schedule) (providers.Outcome, error) {
	if instance.ResourceType == ResourceTypeInstance {
		if engine := a.engines[instance.ResourceID]; isClusterOnlyEngine(engine) {
			return providers.Outcome{}, &awserrors.UnsupportedResourceError{
				ResourceID: instance.ResourceID,
				Reason:     fmt.Sprintf("engine %q must be scheduled through its cluster", engine),
			}
		}
	}
	switch d.Action {
	case scheduling.ActionStart:
		return a.start(ctx, instance, info, schedule)
	case scheduling.ActionStop:
		return a.stop(ctx, instance, info, schedule)
	default:
		return providers.Outcome{ActionTaken: scheduling.ActionDoNothing, NewState: d.NewState}, nil
	}
}

func (a *Adapter) start(ctx context.Context, instance *store.RegisteredInstance, info providers.RuntimeInfo, schedule *scheduling.Schedule) (providers.Outcome, error) {
	if info.Running {
		return providers.Outcome{ActionTaken: scheduling.ActionDoNothing, NewState: scheduling.InstanceStateRunning}, nil
	}
	err := retryTransient(ctx, func() error {
		if instance.ResourceType == ResourceTypeCluster {
			_, startErr := a.api.StartDBCluster(ctx, &rds.StartDBClusterInput{DBClusterIdentifier: aws.String(instance.ResourceID)})
			return startErr
		}
		_, startErr := a.api.StartDBInstance(ctx, &rds.StartDBInstanceInput{DBInstanceIdentifier: aws.String(instance.ResourceID)})
		return startErr
	})
	if err != nil {
		return providers.Outcome{}, fmt.Errorf("starting db %s %s, %w", instance.ResourceType, instance.ResourceID, err)
	}
	a.applyResultTags(ctx, info, schedule, a.startedTags, a.stoppedTags)
	return providers.Outcome{ActionTaken: scheduling.ActionStart, NewState: scheduling.InstanceStateRunning}, nil
}

func (a *Adapter) stop(ctx context.Context, instance *store.RegisteredInstance, info providers.RuntimeInfo, schedule *scheduling.Schedule) (providers.Outcome, error) {
	if info.Stopped {
		return providers.Outcome{ActionTaken: scheduling.ActionDoNothing, NewState: scheduling.InstanceStateStopped}, nil
	}
	// a database mid-backup or mid-modification cannot be stopped; surface
	// the error so the stored state stays put and the next cycle retries
	err := retryTransient(ctx, func() error {
		if instance.ResourceType == ResourceTypeCluster {
			_, stopErr := a.api.StopDBCluster(ctx, &rds.StopDBClusterInput{DBClusterIdentifier: aws.String(instance.ResourceID)})
			return stopErr
		}
		_, stopErr := a.api.StopDBInstance(ctx, &rds.StopDBInstanceInput{DBInstanceIdentifier: aws.String(instance.ResourceID)})
		return stopErr
	})
	if err != nil {
		return providers.Outcome{}, fmt.Errorf("stopping db %s %s, %w", instance.ResourceType, instance.ResourceID, err)
	}
	a.applyResultTags(ctx, info, schedule, a.stoppedTags, a.startedTags)
	return providers.Outcome{ActionTaken: scheduling.ActionStop, NewState: scheduling.InstanceStateStopped}, nil
}

func (a *Adapter) applyResultTags(ctx context.Context, info providers.RuntimeInfo, schedule *scheduling.Schedule, apply, remove []providers.TagTemplate) {
	logger := logging.FromContext(ctx).With("resource", info.ResourceID)
	if info.ARN == "" {
		return
	}
	location := time.UTC
	if schedule != nil && schedule.Timezone != nil {
		location = schedule.Timezone
	}
	lt := time.Now().In(location)
	if len(remove) > 0 {
		keys := lo.Map(remove, func(t providers.TagTemplate, _ int) string { return t.Key })
		if _, err := a.api.RemoveTagsFromResource(ctx, &rds.RemoveTagsFromResourceInput{ResourceName: aws.String(info.ARN), TagKeys: keys}); err != nil {
			logger.Errorf("removing result tags: %s", err)
		}
	}
	if len(apply) > 0 {
		tags := lo.Map(apply, func(t providers.TagTemplate, _ int) rdstypes.Tag {
			key, value := t.Resolve(lt)
			return rdstypes.Tag{Key: aws.String(key), Value: aws.String(value)}
		})
		if _, err := a.api.AddTagsToResource(ctx, &rds.AddTagsToResourceInput{ResourceName: aws.String(info.ARN), Tags: tags}); err != nil {
			logger.Errorf("applying result tags: %s", err)
		}
	}
}

func (a *Adapter) TagError(ctx context.Context, instance *store.RegisteredInstance, code, message string) {
	if instance.ARN == "" {
		return
	}
	if _, err := a.api.AddTagsToResource(ctx, &rds.AddTagsToResourceInput{
		ResourceName: aws.String(instance.ARN),
		Tags: []rdstypes.Tag{{
			Key:   aws.String(providers.ErrorTagKey),
			Value: aws.String(providers.ErrorTagValue(code, message, time.Now())),
		}},
	}); err != nil {
		logging.FromContext(ctx).With("resource", instance.ResourceID).Errorf("tagging error state: %s", err)
	}
}

func isClusterOnlyEngine(engine string) bool {
	return lo.SomeBy(clusterOnlyEnginePrefixes, func(prefix string) bool {
		return strings.HasPrefix(engine, prefix)
	})
}

func retryTransient(ctx context.Context, operation func() error) error {
	return retry.Do(
		operation,
		retry.Context(ctx),
		retry.Attempts(apiRetryAttempts),
		retry.RetryIf(awserrors.IsThrottled),
		retry.LastErrorOnly(true),
	)
}
