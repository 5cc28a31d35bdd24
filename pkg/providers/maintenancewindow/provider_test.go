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

package maintenancewindow_test

import (
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers/maintenancewindow"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

const margin = 15 * time.Minute

// nextExecution is well in the future relative to the test instants.
var (
	nextExecution = time.Date(2024, time.July, 16, 19, 0, 0, 0, time.UTC)
	now           = time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC)
)

func newProvider() *maintenancewindow.Provider {
	return maintenancewindow.NewProvider(ssmapi, mirror, "111122223333", "us-east-1", margin, nil)
}

func advertise(identities ...ssmtypes.MaintenanceWindowIdentity) {
	ssmapi.DescribeMaintenanceWindowsOutput.Set(&ssm.DescribeMaintenanceWindowsOutput{
		WindowIdentities: identities,
	})
}

func identity(id, name string, next time.Time) ssmtypes.MaintenanceWindowIdentity {
	return ssmtypes.MaintenanceWindowIdentity{
		WindowId:          aws.String(id),
		Name:              aws.String(name),
		NextExecutionTime: aws.String(next.Format(time.RFC3339)),
		Duration:          aws.Int32(4),
	}
}

var _ = Describe("Reconcile", func() {
	It("should mirror newly advertised referenced windows", func() {
		advertise(identity("mw-1", "patch-tuesday", nextExecution))
		provider := newProvider()
		Expect(provider.Reconcile(ctx, now, []string{"patch-tuesday"})).To(Succeed())
		Expect(mirror.Len()).To(Equal(1))
		mirrored, ok := mirror.Mirrored(&store.MaintenanceWindow{
			Account: "111122223333", Region: "us-east-1", WindowID: "mw-1", Name: "patch-tuesday",
		})
		Expect(ok).To(BeTrue())
		Expect(mirrored.NextExecutionTime.Equal(nextExecution)).To(BeTrue())
		Expect(mirrored.DurationHours).To(Equal(int32(4)))
	})

	It("should skip windows no schedule references", func() {
		advertise(identity("mw-1", "patch-tuesday", nextExecution))
		Expect(newProvider().Reconcile(ctx, now, []string{"other-window"})).To(Succeed())
		Expect(mirror.Len()).To(Equal(0))
	})

	It("should skip windows without an upcoming execution", func() {
		advertise(ssmtypes.MaintenanceWindowIdentity{
			WindowId: aws.String("mw-1"),
			Name:     aws.String("patch-tuesday"),
			Duration: aws.Int32(4),
		})
		Expect(newProvider().Reconcile(ctx, now, []string{"patch-tuesday"})).To(Succeed())
		Expect(mirror.Len()).To(Equal(0))
	})

	It("should advance the mirrored execution when the window is not active", func() {
		stale := &store.MaintenanceWindow{
			Account: "111122223333", Region: "us-east-1", WindowID: "mw-1", Name: "patch-tuesday",
			NextExecutionTime: lo.ToPtr(nextExecution.Add(-7 * 24 * time.Hour)), DurationHours: 4,
		}
		Expect(mirror.Put(ctx, stale)).To(Succeed())
		advertise(identity("mw-1", "patch-tuesday", nextExecution))
		Expect(newProvider().Reconcile(ctx, now, []string{"patch-tuesday"})).To(Succeed())
		mirrored, ok := mirror.Mirrored(stale)
		Expect(ok).To(BeTrue())
		Expect(mirrored.NextExecutionTime.Equal(nextExecution)).To(BeTrue())
	})

	It("should never overwrite an actively running window", func() {
		// currently executing: began an hour before now
		active := &store.MaintenanceWindow{
			Account: "111122223333", Region: "us-east-1", WindowID: "mw-1", Name: "patch-tuesday",
			NextExecutionTime: lo.ToPtr(now.Add(-time.Hour)), DurationHours: 4,
		}
		Expect(mirror.Put(ctx, active)).To(Succeed())
		advertise(identity("mw-1", "patch-tuesday", nextExecution))
		Expect(newProvider().Reconcile(ctx, now, []string{"patch-tuesday"})).To(Succeed())
		mirrored, ok := mirror.Mirrored(active)
		Expect(ok).To(BeTrue())
		Expect(mirrored.NextExecutionTime.Equal(now.Add(-time.Hour))).To(BeTrue())
	})

	It("should never delete an actively running window the provider stopped advertising", func() {
		active := &store.MaintenanceWindow{
			Account: "111122223333", Region: "us-east-1", WindowID: "mw-1", Name: "patch-tuesday",
			NextExecutionTime: lo.ToPtr(now.Add(-time.Hour)), DurationHours: 4,
		}
		Expect(mirror.Put(ctx, active)).To(Succeed())
		advertise()
		provider := newProvider()
		Expect(provider.Reconcile(ctx, now, []string{"patch-tuesday"})).To(Succeed())
		Expect(mirror.Len()).To(Equal(1))
		// the surviving window still yields a schedule
		Expect(provider.FindByName(ctx, "patch-tuesday")).To(HaveLen(1))
	})

	It("should delete inactive windows the provider no longer advertises", func() {
		gone := &store.MaintenanceWindow{
			Account: "111122223333", Region: "us-east-1", WindowID: "mw-1", Name: "patch-tuesday",
			NextExecutionTime: lo.ToPtr(nextExecution), DurationHours: 4,
		}
		Expect(mirror.Put(ctx, gone)).To(Succeed())
		advertise()
		Expect(newProvider().Reconcile(ctx, now, []string{"patch-tuesday"})).To(Succeed())
		Expect(mirror.Len()).To(Equal(0))
	})

	It("should share one fetch across providers via the cache", func() {
		advertise(identity("mw-1", "patch-tuesday", nextExecution))
		fetchCache := cache.New(time.Minute, 2*time.Minute)
		first := maintenancewindow.NewProvider(ssmapi, mirror, "111122223333", "us-east-1", margin, fetchCache)
		second := maintenancewindow.NewProvider(ssmapi, mirror, "111122223333", "us-east-1", margin, fetchCache)
		Expect(first.Reconcile(ctx, now, []string{"patch-tuesday"})).To(Succeed())
		Expect(second.Reconcile(ctx, now, []string{"patch-tuesday"})).To(Succeed())
		Expect(ssmapi.CalledWithDescribeMaintenanceWindowsInput.Len()).To(Equal(1))
	})

	It("should surface provider failures", func() {
		ssmapi.DescribeMaintenanceWindowsError.Set(errors.New("describe failed"))
		Expect(newProvider().Reconcile(ctx, now, []string{"patch-tuesday"})).ToNot(Succeed())
	})
})

var _ = Describe("FindByName", func() {
	It("should return every window sharing the display name", func() {
		advertise(
			identity("mw-1", "patch-tuesday", nextExecution),
			identity("mw-2", "patch-tuesday", nextExecution.Add(2*time.Hour)),
			identity("mw-3", "other", nextExecution),
		)
		provider := newProvider()
		Expect(provider.Reconcile(ctx, now, []string{"patch-tuesday", "other"})).To(Succeed())
		Expect(provider.FindByName(ctx, "patch-tuesday")).To(HaveLen(2))
		Expect(provider.FindByName(ctx, "other")).To(HaveLen(1))
		Expect(provider.FindByName(ctx, "missing")).To(BeEmpty())
	})

	It("should yield enforced schedules active over the margin-widened execution", func() {
		advertise(identity("mw-1", "patch-tuesday", nextExecution))
		provider := newProvider()
		Expect(provider.Reconcile(ctx, now, []string{"patch-tuesday"})).To(Succeed())
		schedules := provider.FindByName(ctx, "patch-tuesday")
		Expect(schedules).To(HaveLen(1))
		schedule := schedules[0]
		Expect(schedule.Enforced).To(BeTrue())
		// window is 19:00-23:00 with a 15 minute lead
		Expect(schedule.Evaluate(nextExecution.Add(-margin)).State).To(Equal(scheduling.StateRunning))
		Expect(schedule.Evaluate(nextExecution.Add(2 * time.Hour)).State).To(Equal(scheduling.StateRunning))
		Expect(schedule.Evaluate(nextExecution.Add(-margin - time.Minute)).State).To(Equal(scheduling.StateStopped))
		Expect(schedule.Evaluate(nextExecution.Add(4 * time.Hour)).State).To(Equal(scheduling.StateStopped))
	})

	It("should split a window crossing midnight into single-day periods", func() {
		// 22:00 for 4 hours crosses into the next day
		lateNight := time.Date(2024, time.July, 16, 22, 0, 0, 0, time.UTC)
		advertise(identity("mw-1", "overnight", lateNight))
		provider := newProvider()
		Expect(provider.Reconcile(ctx, now, []string{"overnight"})).To(Succeed())
		schedules := provider.FindByName(ctx, "overnight")
		Expect(schedules).To(HaveLen(1))
		schedule := schedules[0]
		Expect(schedule.Evaluate(lateNight.Add(time.Hour)).State).To(Equal(scheduling.StateRunning))
		// 00:30 on the 17th, still inside the window
		Expect(schedule.Evaluate(time.Date(2024, time.July, 17, 0, 30, 0, 0, time.UTC)).State).To(Equal(scheduling.StateRunning))
		Expect(schedule.Evaluate(time.Date(2024, time.July, 17, 2, 0, 0, 0, time.UTC)).State).To(Equal(scheduling.StateStopped))
	})
})
