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

package scheduling_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/controllers/scheduling"
	schedcore "github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

type capturingDispatcher struct {
	mu       sync.Mutex
	requests []*scheduling.Request
	WantErr  error
}

func (d *capturingDispatcher) Dispatch(_ context.Context, req *scheduling.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return d.WantErr
}

func (d *capturingDispatcher) forTarget(target store.Target) *scheduling.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	req, _ := lo.Find(d.requests, func(r *scheduling.Request) bool { return r.Target() == target })
	return req
}

var _ = Describe("Orchestrator", func() {
	var dispatcher *capturingDispatcher
	var config store.ConfigStore

	now := time.Date(2024, 7, 15, 12, 0, 30, 0, time.UTC)
	ec2Target := store.Target{Account: "111122223333", Region: "us-east-1", Service: store.ServiceEC2}
	rdsTarget := store.Target{Account: "111122223333", Region: "us-west-2", Service: store.ServiceRDS}

	register := func(target store.Target, id, schedule string) {
		Expect(registry.Put(ctx, &store.RegisteredInstance{
			Account:      target.Account,
			Region:       target.Region,
			Service:      target.Service,
			ResourceType: "instance",
			ResourceID:   id,
			ScheduleName: schedule,
		})).To(Succeed())
	}

	newOrchestrator := func(payloadCeiling int) *scheduling.Orchestrator {
		return scheduling.NewOrchestrator(config, registry, dispatcher, payloadCeiling, 4)
	}

	BeforeEach(func() {
		dispatcher = &capturingDispatcher{}
		config = store.NewMemoryConfigStore(
			[]schedcore.ScheduleDefinition{
				{Name: "office", Periods: []string{"office-hours"}},
				{Name: "batch", Periods: []string{"night"}},
				{Name: "weekend", Periods: []string{"sat-sun"}},
			},
			[]schedcore.PeriodDefinition{
				{Name: "office-hours", BeginTime: "09:00", EndTime: "17:00", Weekdays: []string{"mon-fri"}},
				{Name: "night", BeginTime: "22:00", EndTime: "06:00"},
				{Name: "sat-sun", Weekdays: []string{"sat-sun"}},
			},
		)
	})

	It("should dispatch one request per account, region, and service", func() {
		register(ec2Target, "i-1", "office")
		register(ec2Target, "i-2", "batch")
		register(rdsTarget, "db-1", "batch")

		Expect(newOrchestrator(256*1024).RunCycle(ctx, now)).To(Succeed())
		Expect(dispatcher.requests).To(HaveLen(2))

		req := dispatcher.forTarget(ec2Target)
		Expect(req).ToNot(BeNil())
		Expect(req.Validate()).To(Succeed())
		Expect(req.RequestID).ToNot(BeEmpty())
		Expect(req.ScheduleNames).To(ConsistOf("office", "batch"))
	})

	It("should align the scheduling instant to the minute", func() {
		register(ec2Target, "i-1", "office")
		Expect(newOrchestrator(256*1024).RunCycle(ctx, now)).To(Succeed())
		Expect(dispatcher.requests[0].CurrentDT).To(Equal(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)))
	})

	It("should inline only the configuration the target references", func() {
		register(ec2Target, "i-1", "office")
		Expect(newOrchestrator(256*1024).RunCycle(ctx, now)).To(Succeed())

		req := dispatcher.forTarget(ec2Target)
		Expect(lo.Map(req.Schedules, func(def schedcore.ScheduleDefinition, _ int) string { return def.Name })).
			To(ConsistOf("office"))
		Expect(lo.Map(req.Periods, func(def schedcore.PeriodDefinition, _ int) string { return def.Name })).
			To(ConsistOf("office-hours"))
	})

	It("should drop the inlined configuration when it exceeds the payload ceiling", func() {
		register(ec2Target, "i-1", "office")
		Expect(newOrchestrator(64).RunCycle(ctx, now)).To(Succeed())

		req := dispatcher.forTarget(ec2Target)
		Expect(req.Schedules).To(BeEmpty())
		Expect(req.Periods).To(BeEmpty())
		Expect(req.ScheduleNames).To(ConsistOf("office"))
	})

	It("should dispatch nothing for an empty registry", func() {
		Expect(newOrchestrator(256*1024).RunCycle(ctx, now)).To(Succeed())
		Expect(dispatcher.requests).To(BeEmpty())
	})

	It("should finish the cycle when dispatches fail", func() {
		register(ec2Target, "i-1", "office")
		register(rdsTarget, "db-1", "batch")
		dispatcher.WantErr = errors.New("runner unavailable")

		Expect(newOrchestrator(256*1024).RunCycle(ctx, now)).To(Succeed())
		Expect(dispatcher.requests).To(HaveLen(2))
	})

	It("should surface registry failures", func() {
		registry.WantErr = errors.New("table unavailable")
		Expect(newOrchestrator(256*1024).RunCycle(ctx, now)).ToNot(Succeed())
	})
})
