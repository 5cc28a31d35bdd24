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

package store_test

import (
	"time"

	"github.com/patrickmn/go-cache"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

var _ = Describe("CachedConfigStore", func() {
	var cached *store.CachedConfigStore
	BeforeEach(func() {
		inner := store.NewDynamoConfigStore(dynamoapi, "config-table")
		cached = store.NewCachedConfigStore(inner, cache.New(time.Minute, 2*time.Minute))
	})

	It("should hit the table once for repeated reads", func() {
		_, err := cached.GetSchedules(ctx)
		Expect(err).ToNot(HaveOccurred())
		_, err = cached.GetSchedules(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(dynamoapi.CalledWithQueryInput.Len()).To(Equal(1))
	})

	It("should cache schedules and periods independently", func() {
		_, err := cached.GetSchedules(ctx)
		Expect(err).ToNot(HaveOccurred())
		_, err = cached.GetPeriods(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(dynamoapi.CalledWithQueryInput.Len()).To(Equal(2))
	})

	It("should invalidate on write", func() {
		_, err := cached.GetSchedules(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(cached.PutSchedule(ctx, scheduling.ScheduleDefinition{Name: "office"})).To(Succeed())
		_, err = cached.GetSchedules(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(dynamoapi.CalledWithQueryInput.Len()).To(Equal(2))
	})
})

var _ = Describe("MemoryConfigStore", func() {
	It("should serve the inlined definitions and refuse writes", func() {
		memory := store.NewMemoryConfigStore(
			[]scheduling.ScheduleDefinition{{Name: "office"}},
			[]scheduling.PeriodDefinition{{Name: "office-hours"}},
		)
		schedules, err := memory.GetSchedules(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(schedules).To(HaveLen(1))
		periods, err := memory.GetPeriods(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(periods).To(HaveLen(1))
		Expect(memory.PutSchedule(ctx, scheduling.ScheduleDefinition{Name: "x"})).ToNot(Succeed())
		Expect(memory.DeletePeriod(ctx, "office-hours")).ToNot(Succeed())
	})
})
