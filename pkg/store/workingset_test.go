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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/errors"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

var _ = Describe("WorkingSet", func() {
	scheduleDefs := []scheduling.ScheduleDefinition{
		{Name: "office", Periods: []string{"office-hours"}},
		{Name: "nightly", Periods: []string{"night-shift"}},
	}
	periodDefs := []scheduling.PeriodDefinition{
		{Name: "office-hours", BeginTime: "09:00", EndTime: "17:00"},
		{Name: "night-shift", BeginTime: "22:00"},
	}

	It("should build every schedule when no names are given", func() {
		ws := store.BuildWorkingSet(ctx, scheduleDefs, periodDefs, "UTC", nil)
		Expect(ws.Len()).To(Equal(2))
		schedule, err := ws.Schedule("office")
		Expect(err).ToNot(HaveOccurred())
		Expect(schedule.Periods).To(HaveLen(1))
	})

	It("should restrict the build to the requested names", func() {
		ws := store.BuildWorkingSet(ctx, scheduleDefs, periodDefs, "UTC", []string{"nightly"})
		Expect(ws.Len()).To(Equal(1))
		_, err := ws.Schedule("office")
		Expect(errors.IsUnknownSchedule(err)).To(BeTrue())
	})

	It("should skip invalid periods and the schedules that reference them", func() {
		badPeriods := append([]scheduling.PeriodDefinition{
			{Name: "broken", BeginTime: "25:00"},
		}, periodDefs...)
		defs := append([]scheduling.ScheduleDefinition{
			{Name: "uses-broken", Periods: []string{"broken"}},
		}, scheduleDefs...)
		ws := store.BuildWorkingSet(ctx, defs, badPeriods, "UTC", nil)
		Expect(ws.Len()).To(Equal(2))
		_, err := ws.Schedule("uses-broken")
		Expect(errors.IsUnknownSchedule(err)).To(BeTrue())
	})

	It("should skip invalid schedules without aborting the build", func() {
		defs := append([]scheduling.ScheduleDefinition{
			{Name: "empty"},
		}, scheduleDefs...)
		ws := store.BuildWorkingSet(ctx, defs, periodDefs, "UTC", nil)
		Expect(ws.Len()).To(Equal(2))
	})

	It("should report unknown schedules with a typed error", func() {
		ws := store.BuildWorkingSet(ctx, scheduleDefs, periodDefs, "UTC", nil)
		_, err := ws.Schedule("missing")
		Expect(errors.IsUnknownSchedule(err)).To(BeTrue())
	})
})
