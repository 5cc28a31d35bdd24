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

// Package maintenancewindow reconciles provider-reported maintenance
// windows with a persistent mirror. The provider API only exposes each
// window's next execution, so a window whose current execution is still
// running would vanish mid-execution without the mirror; a mirrored window
// that is active at the scheduling instant is never overwritten or deleted
// until its execution ends.
package maintenancewindow

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

// Provider reconciles and serves the maintenance windows of one
// (account, region). Reconcile must be called exactly once per runner
// invocation, before any decision that might consult the windows.
type Provider struct {
	ssmapi  sdk.SSMAPI
	mirror  store.MaintenanceWindowStore
	account string
	region  string
	// margin widens the window start: polling interval plus a fixed lead
	// so the resource is up when the execution begins.
	margin time.Duration
	// fetchCache keys DescribeMaintenanceWindows results by account:region
	// so the ec2/rds/autoscaling runners of one process share a fetch.
	fetchCache *cache.Cache

	reconciled map[string][]*store.MaintenanceWindow
}

func NewProvider(ssmapi sdk.SSMAPI, mirror store.MaintenanceWindowStore, account, region string, margin time.Duration, fetchCache *cache.Cache) *Provider {
	return &Provider{
		ssmapi:     ssmapi,
		mirror:     mirror,
		account:    account,
		region:     region,
		margin:     margin,
		fetchCache: fetchCache,
		reconciled: map[string][]*store.MaintenanceWindow{},
	}
}

// Reconcile fetches the provider's windows, folds them into the mirror
// and materializes the windows referenced by at least one in-scope
// schedule. Windows with no upcoming execution and windows no schedule
// references are not mirrored.
func (p *Provider) Reconcile(ctx context.Context, dt time.Time, referencedNames []string) error {
	logger := logging.FromContext(ctx).With("account", p.account, "region", p.region)
	fetched, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("describing maintenance windows, %w", err)
	}
	fetched = lo.Filter(fetched, func(w *store.MaintenanceWindow, _ int) bool {
		return w.NextExecutionTime != nil && lo.Contains(referencedNames, w.Name)
	})
	mirrored, err := p.mirror.List(ctx, p.account, p.region)
	if err != nil {
		return fmt.Errorf("loading maintenance window mirror, %w", err)
	}
	mirroredByKey := lo.SliceToMap(mirrored, func(w *store.MaintenanceWindow) (string, *store.MaintenanceWindow) {
		return w.NameID(), w
	})

	surviving := map[string]*store.MaintenanceWindow{}
	for _, window := range fetched {
		key := window.NameID()
		current, exists := mirroredByKey[key]
		switch {
		case !exists:
			if err := p.mirror.Put(ctx, window); err != nil {
				return err
			}
			surviving[key] = window
		case current.Equal(window):
			surviving[key] = current
		case current.IsRunningAt(dt, p.margin):
			// the mirrored execution is still in progress; overwriting it
			// with the next execution would stop the resource mid-window
			logger.With("window", key).Debug("keeping actively running maintenance window")
			surviving[key] = current
		default:
			if err := p.mirror.Put(ctx, window); err != nil {
				return err
			}
			surviving[key] = window
		}
	}
	for key, current := range mirroredByKey {
		if _, stillAdvertised := surviving[key]; stillAdvertised {
			continue
		}
		if current.IsRunningAt(dt, p.margin) {
			surviving[key] = current
			continue
		}
		if err := p.mirror.Delete(ctx, current); err != nil {
			return err
		}
	}

	p.reconciled = map[string][]*store.MaintenanceWindow{}
	for _, window := range surviving {
		p.reconciled[window.Name] = append(p.reconciled[window.Name], window)
	}
	logger.With("windows", len(surviving)).Debug("reconciled maintenance windows")
	return nil
}

// FindByName returns every reconciled window carrying the display name as
// a synthetic enforced schedule. Names are not unique per window id, so
// one name may yield several schedules.
func (p *Provider) FindByName(ctx context.Context, name string) []*scheduling.Schedule {
	windows := p.reconciled[name]
	schedules := make([]*scheduling.Schedule, 0, len(windows))
	for _, window := range windows {
		schedule, err := asSchedule(window, p.margin)
		if err != nil {
			logging.FromContext(ctx).With("window", window.NameID()).Errorf("skipping maintenance window: %s", err)
			continue
		}
		schedules = append(schedules, schedule)
	}
	return schedules
}

// fetch lists the account/region's maintenance windows, memoized so the
// per-service runners of one process share a single provider call.
func (p *Provider) fetch(ctx context.Context) ([]*store.MaintenanceWindow, error) {
	cacheKey := p.account + ":" + p.region
	if p.fetchCache != nil {
		if entry, ok := p.fetchCache.Get(cacheKey); ok {
			return entry.([]*store.MaintenanceWindow), nil
		}
	}
	var windows []*store.MaintenanceWindow
	var nextToken *string
	for {
		out, err := p.ssmapi.DescribeMaintenanceWindows(ctx, &ssm.DescribeMaintenanceWindowsInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, err
		}
		for _, identity := range out.WindowIdentities {
			window := &store.MaintenanceWindow{
				Account:       p.account,
				Region:        p.region,
				WindowID:      aws.ToString(identity.WindowId),
				Name:          aws.ToString(identity.Name),
				Timezone:      aws.ToString(identity.ScheduleTimezone),
				DurationHours: aws.ToInt32(identity.Duration),
			}
			if next, err := parseExecutionTime(aws.ToString(identity.NextExecutionTime)); err == nil {
				window.NextExecutionTime = lo.ToPtr(next)
			}
			windows = append(windows, window)
		}
		if nextToken = out.NextToken; nextToken == nil {
			break
		}
	}
	if p.fetchCache != nil {
		p.fetchCache.SetDefault(cacheKey, windows)
	}
	return windows, nil
}

// parseExecutionTime parses the provider's next-execution timestamp,
// which is reported with or without seconds.
func parseExecutionTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("no execution time")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable execution time %q", s)
}
