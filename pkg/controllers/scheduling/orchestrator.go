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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/metrics"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

// Orchestrator partitions the registry into targets and dispatches one
// request per target each cycle. It holds hub-account credentials only;
// all spoke-account work happens in the runners.
type Orchestrator struct {
	config     store.ConfigStore
	registry   store.Registry
	dispatcher Dispatcher
	// payloadCeiling bounds the serialized request size; configurations
	// that would push a request over it are not inlined.
	payloadCeiling int
	parallelism    int
}

func NewOrchestrator(config store.ConfigStore, registry store.Registry, dispatcher Dispatcher, payloadCeiling, parallelism int) *Orchestrator {
	return &Orchestrator{
		config:         config,
		registry:       registry,
		dispatcher:     dispatcher,
		payloadCeiling: payloadCeiling,
		parallelism:    lo.Max([]int{parallelism, 1}),
	}
}

// RunCycle builds and dispatches the requests for one scheduling instant.
// A failed dispatch is logged and does not block the other targets.
func (o *Orchestrator) RunCycle(ctx context.Context, now time.Time) error {
	logger := logging.FromContext(ctx).Named("orchestrator")
	ctx = logging.WithLogger(ctx, logger)

	scheduleDefs, err := o.config.GetSchedules(ctx)
	if err != nil {
		return fmt.Errorf("loading schedule definitions, %w", err)
	}
	periodDefs, err := o.config.GetPeriods(ctx)
	if err != nil {
		return fmt.Errorf("loading period definitions, %w", err)
	}
	instances, err := o.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("listing registered resources, %w", err)
	}
	byTarget := lo.GroupBy(instances, func(i *store.RegisteredInstance) store.Target { return i.Target() })
	if len(byTarget) == 0 {
		logger.Debug("no registered resources, nothing to dispatch")
		return nil
	}

	// the decision grid is minute-aligned; sub-minute dispatch jitter must
	// not move targets onto different instants
	currentDT := now.Truncate(time.Minute)
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(o.parallelism)
	for target, targetInstances := range byTarget {
		target := target
		req := o.buildRequest(ctx, target, targetInstances, scheduleDefs, periodDefs, currentDT)
		grp.Go(func() error {
			if err := o.dispatcher.Dispatch(ctx, req); err != nil {
				logger.With("target", target.String()).Errorf("dispatching target: %s", err)
				return nil
			}
			metrics.DispatchedTargets.Inc()
			return nil
		})
	}
	return grp.Wait()
}

// buildRequest assembles one target's request, inlining the configuration
// slice the target actually references when it fits under the ceiling.
func (o *Orchestrator) buildRequest(ctx context.Context, target store.Target, instances []*store.RegisteredInstance, scheduleDefs []scheduling.ScheduleDefinition, periodDefs []scheduling.PeriodDefinition, currentDT time.Time) *Request {
	scheduleNames := lo.Uniq(lo.FilterMap(instances, func(i *store.RegisteredInstance, _ int) (string, bool) {
		return i.ScheduleName, i.ScheduleName != ""
	}))
	req := &Request{
		Action:        ActionRun,
		RequestID:     uuid.NewString(),
		Account:       target.Account,
		Region:        target.Region,
		Service:       target.Service,
		CurrentDT:     currentDT,
		DispatchTime:  time.Now(),
		ScheduleNames: scheduleNames,
	}

	referenced := lo.Filter(scheduleDefs, func(def scheduling.ScheduleDefinition, _ int) bool {
		return lo.Contains(scheduleNames, def.Name)
	})
	periodNames := lo.Uniq(lo.FlatMap(referenced, func(def scheduling.ScheduleDefinition, _ int) []string {
		return lo.Map(def.Periods, func(ref string, _ int) string {
			name, _, _ := strings.Cut(ref, "@")
			return strings.TrimSpace(name)
		})
	}))
	req.Schedules = referenced
	req.Periods = lo.Filter(periodDefs, func(def scheduling.PeriodDefinition, _ int) bool {
		return lo.Contains(periodNames, def.Name)
	})

	if payload, err := json.Marshal(req); err != nil || len(payload) > o.payloadCeiling {
		logging.FromContext(ctx).With("target", target.String()).
			Debug("configuration exceeds payload ceiling, runner will load the config table")
		req.Schedules = nil
		req.Periods = nil
	}
	return req
}
