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
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	schederrors "github.com/aws-solutions/instance-scheduler-on-aws/pkg/errors"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/events"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/metrics"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling/decision"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

// deadlineSafetyMargin is how much of the invocation deadline the runner
// reserves for flushing state and metrics; processing of further resources
// stops once less than this remains.
const deadlineSafetyMargin = 30 * time.Second

// MaintenanceWindowContext is the runner's view of the maintenance-window
// provider for one (account, region).
type MaintenanceWindowContext interface {
	Reconcile(ctx context.Context, dt time.Time, referencedNames []string) error
	FindByName(ctx context.Context, name string) []*scheduling.Schedule
}

// Environment builds the per-target AWS surface after cross-account role
// assumption. Implementations cache assumed-role credentials.
type Environment interface {
	Adapter(ctx context.Context, target store.Target) (providers.Adapter, error)
	MaintenanceWindows(ctx context.Context, account, region string) (MaintenanceWindowContext, error)
}

// Runner processes one target per invocation: hydrate the working set,
// reconcile maintenance windows once, then decide, act, and persist per
// resource. One resource's failure never aborts the target.
type Runner struct {
	env             Environment
	config          store.ConfigStore
	registry        store.Registry
	emitter         events.Emitter
	reporter        *metrics.Reporter
	defaultTimezone string
}

func NewRunner(env Environment, config store.ConfigStore, registry store.Registry, emitter events.Emitter, reporter *metrics.Reporter, defaultTimezone string) *Runner {
	return &Runner{
		env:             env,
		config:          config,
		registry:        registry,
		emitter:         emitter,
		reporter:        reporter,
		defaultTimezone: defaultTimezone,
	}
}

func (r *Runner) Run(ctx context.Context, req *Request) error {
	start := time.Now()
	target := req.Target()
	logger := logging.FromContext(ctx).Named("runner").
		With("request", req.RequestID, "target", target.String())
	ctx = logging.WithLogger(ctx, logger)
	if err := req.Validate(); err != nil {
		return err
	}
	dt := req.CurrentDT
	if dt.IsZero() {
		dt = time.Now().Truncate(time.Minute)
	}

	workingSet, err := r.hydrate(ctx, req)
	if err != nil {
		return err
	}
	instances, err := r.registry.ListTarget(ctx, target)
	if err != nil {
		return fmt.Errorf("listing target resources, %w", err)
	}
	if len(instances) == 0 {
		logger.Debug("target has no registered resources")
		return nil
	}
	adapter, err := r.env.Adapter(ctx, target)
	if err != nil {
		return fmt.Errorf("building %s adapter, %w", target.Service, err)
	}
	windows, err := r.env.MaintenanceWindows(ctx, req.Account, req.Region)
	if err != nil {
		return fmt.Errorf("building maintenance window context, %w", err)
	}
	referencedWindows := lo.Uniq(lo.FlatMap(workingSet.Schedules(), func(s *scheduling.Schedule, _ int) []string {
		return s.MaintenanceWindowNames
	}))
	if err := windows.Reconcile(ctx, dt, referencedWindows); err != nil {
		// stale mirror state is still usable; schedules fall back to their
		// periods when no window is found
		logger.Errorf("reconciling maintenance windows: %s", err)
	}
	infos, err := adapter.Describe(ctx, instances)
	if err != nil {
		return fmt.Errorf("describing target resources, %w", err)
	}

	var errs error
	counts := map[scheduling.RequestedAction]int{}
	for _, instance := range instances {
		if remaining, ok := deadlineRemaining(ctx); ok && remaining < deadlineSafetyMargin {
			logger.With("remaining", remaining.String()).
				Warn("approaching invocation deadline, flushing partial results")
			break
		}
		if err := r.processInstance(ctx, dt, instance, infos, workingSet, windows, adapter, counts); err != nil {
			metrics.ResourceErrorsTotal.WithLabelValues(string(target.Service), errorKind(err)).Inc()
			errs = multierr.Append(errs, err)
		}
	}

	r.reporter.ReportTarget(ctx, target, counts, len(instances), time.Since(start))
	return errs
}

// hydrate builds the working set from the request's inlined definitions,
// falling back to the config table when the orchestrator did not inline.
func (r *Runner) hydrate(ctx context.Context, req *Request) (*store.WorkingSet, error) {
	config := r.config
	if len(req.Schedules) > 0 || len(req.Periods) > 0 {
		config = store.NewMemoryConfigStore(req.Schedules, req.Periods)
	}
	scheduleDefs, err := config.GetSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading schedule definitions, %w", err)
	}
	periodDefs, err := config.GetPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading period definitions, %w", err)
	}
	return store.BuildWorkingSet(ctx, scheduleDefs, periodDefs, r.defaultTimezone, req.ScheduleNames), nil
}

func (r *Runner) processInstance(
	ctx context.Context,
	dt time.Time,
	instance *store.RegisteredInstance,
	infos map[string]providers.RuntimeInfo,
	workingSet *store.WorkingSet,
	windows MaintenanceWindowContext,
	adapter providers.Adapter,
	counts map[scheduling.RequestedAction]int,
) error {
	logger := logging.FromContext(ctx).With("resource", instance.ResourceID, "schedule", instance.ScheduleName)
	ctx = logging.WithLogger(ctx, logger)

	info, described := infos[instance.ResourceID]
	if !described {
		// a describe gap is not proof of deletion; the registration stays
		// until a tag change removes it
		logger.Warn("resource not described this cycle, skipping")
		return nil
	}
	schedule, err := workingSet.Schedule(instance.ScheduleName)
	if err != nil {
		adapter.TagError(ctx, instance, "UnknownSchedule", err.Error())
		return err
	}
	mws := lo.FlatMap(schedule.MaintenanceWindowNames, func(name string, _ int) []*scheduling.Schedule {
		return windows.FindByName(ctx, name)
	})

	d := decision.Decide(instance.StoredState, schedule, dt, mws)
	metrics.DecisionsTotal.WithLabelValues(string(instance.Service), string(d.Action)).Inc()
	outcome, err := adapter.Execute(ctx, instance, info, d, schedule)
	if err != nil {
		if schederrors.IsUnsupportedResource(err) {
			// surfaced once; removing the registration stops the retries
			adapter.TagError(ctx, instance, "UnsupportedResource", err.Error())
			logger.Errorf("deregistering unsupported resource: %s", err)
			return r.registry.Deregister(ctx, instance)
		}
		return fmt.Errorf("executing %s on %s, %w", d.Action, instance.ResourceID, err)
	}

	if outcome.NewState != instance.StoredState {
		previous := instance.StoredState
		instance.StoredState = outcome.NewState
		if err := r.registry.Put(ctx, instance); err != nil {
			instance.StoredState = previous
			return fmt.Errorf("persisting state of %s, %w", instance.ResourceID, err)
		}
	}
	counts[outcome.ActionTaken]++
	if outcome.ActionTaken != scheduling.ActionDoNothing {
		logger.With("action", outcome.ActionTaken, "state", outcome.NewState, "reason", d.Reason).
			Info("scheduling action taken")
		r.emitter.Emit(ctx, events.Event{
			Account:         instance.Account,
			Region:          instance.Region,
			Service:         instance.Service,
			ResourceID:      instance.ResourceID,
			ARN:             lo.CoalesceOrEmpty(info.ARN, instance.ARN),
			Schedule:        schedule.Name,
			RequestedAction: string(d.Action),
			ActionTaken:     string(outcome.ActionTaken),
			NewState:        string(outcome.NewState),
			Reason:          d.Reason,
		})
	}
	return nil
}

func deadlineRemaining(ctx context.Context) (time.Duration, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	return time.Until(deadline), true
}

func errorKind(err error) string {
	switch {
	case schederrors.IsUnknownSchedule(err):
		return "unknown_schedule"
	case schederrors.IsUnsupportedResource(err):
		return "unsupported_resource"
	case schederrors.IsThrottled(err):
		return "throttled"
	case schederrors.IsAccessDenied(err):
		return "access_denied"
	default:
		return "other"
	}
}
