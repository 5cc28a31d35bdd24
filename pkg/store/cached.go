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
	"context"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
)

const (
	cachedSchedulesKey = "schedules"
	cachedPeriodsKey   = "periods"
)

// CachedConfigStore memoizes definition reads so that runners processing
// many targets in one invocation hit the table once. Writes pass through
// and invalidate. The cache TTL bounds staleness to well under a
// scheduling interval.
type CachedConfigStore struct {
	mu    sync.Mutex
	inner ConfigStore
	cache *cache.Cache
}

func NewCachedConfigStore(inner ConfigStore, c *cache.Cache) *CachedConfigStore {
	return &CachedConfigStore{inner: inner, cache: c}
}

func (s *CachedConfigStore) GetSchedules(ctx context.Context) ([]scheduling.ScheduleDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.cache.Get(cachedSchedulesKey); ok {
		return entry.([]scheduling.ScheduleDefinition), nil
	}
	defs, err := s.inner.GetSchedules(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(cachedSchedulesKey, defs)
	return defs, nil
}

func (s *CachedConfigStore) GetPeriods(ctx context.Context) ([]scheduling.PeriodDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.cache.Get(cachedPeriodsKey); ok {
		return entry.([]scheduling.PeriodDefinition), nil
	}
	defs, err := s.inner.GetPeriods(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(cachedPeriodsKey, defs)
	return defs, nil
}

func (s *CachedConfigStore) PutSchedule(ctx context.Context, def scheduling.ScheduleDefinition) error {
	s.invalidate(cachedSchedulesKey)
	return s.inner.PutSchedule(ctx, def)
}

func (s *CachedConfigStore) PutPeriod(ctx context.Context, def scheduling.PeriodDefinition) error {
	s.invalidate(cachedPeriodsKey)
	return s.inner.PutPeriod(ctx, def)
}

func (s *CachedConfigStore) DeleteSchedule(ctx context.Context, name string) error {
	s.invalidate(cachedSchedulesKey)
	return s.inner.DeleteSchedule(ctx, name)
}

func (s *CachedConfigStore) DeletePeriod(ctx context.Context, name string) error {
	s.invalidate(cachedPeriodsKey)
	return s.inner.DeletePeriod(ctx, name)
}

func (s *CachedConfigStore) invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(key)
}

// memoryConfigStore is an in-memory ConfigStore hydrated from a dispatch
// payload's inlined definitions; runners use it instead of the table when
// the orchestrator inlined the configuration.
type memoryConfigStore struct {
	schedules []scheduling.ScheduleDefinition
	periods   []scheduling.PeriodDefinition
}

// NewMemoryConfigStore wraps inlined definitions in the ConfigStore
// interface. It is read-only.
func NewMemoryConfigStore(schedules []scheduling.ScheduleDefinition, periods []scheduling.PeriodDefinition) ConfigStore {
	return &memoryConfigStore{schedules: schedules, periods: periods}
}

func (s *memoryConfigStore) GetSchedules(context.Context) ([]scheduling.ScheduleDefinition, error) {
	return s.schedules, nil
}

func (s *memoryConfigStore) GetPeriods(context.Context) ([]scheduling.PeriodDefinition, error) {
	return s.periods, nil
}

func (s *memoryConfigStore) PutSchedule(context.Context, scheduling.ScheduleDefinition) error {
	return errReadOnly
}

func (s *memoryConfigStore) PutPeriod(context.Context, scheduling.PeriodDefinition) error {
	return errReadOnly
}

func (s *memoryConfigStore) DeleteSchedule(context.Context, string) error {
	return errReadOnly
}

func (s *memoryConfigStore) DeletePeriod(context.Context, string) error {
	return errReadOnly
}
