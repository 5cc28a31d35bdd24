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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
)

var _ = Describe("Schedule", func() {
	office := &scheduling.Period{Name: "office-hours", BeginTime: tod(9, 0), EndTime: tod(17, 0)}

	It("should report the authoritative period while running", func() {
		s := &scheduling.Schedule{
			Name:    "office",
			Periods: []scheduling.PeriodReference{{Period: office, InstanceSize: "m5.large"}},
		}
		result := s.Evaluate(at(2024, time.July, 15, 12, 0))
		Expect(result.State).To(Equal(scheduling.StateRunning))
		Expect(result.PeriodName).To(Equal("office-hours"))
		Expect(result.DesiredSize).To(Equal("m5.large"))
	})

	It("should compose period states with running taking priority over any and stopped", func() {
		s := &scheduling.Schedule{
			Name: "mixed",
			Periods: []scheduling.PeriodReference{
				{Period: &scheduling.Period{Name: "early-stop", EndTime: tod(8, 0)}},
				{Period: office},
			},
		}
		// office running wins over early-stop's stopped
		Expect(s.Evaluate(at(2024, time.July, 15, 12, 0)).State).To(Equal(scheduling.StateRunning))
		// before 08:00: any from early-stop wins over office's stopped
		Expect(s.Evaluate(at(2024, time.July, 15, 7, 0)).State).To(Equal(scheduling.StateAny))
		// after office: both stopped
		Expect(s.Evaluate(at(2024, time.July, 15, 20, 0)).State).To(Equal(scheduling.StateStopped))
	})

	It("should give authority to the running period with the latest begintime", func() {
		s := &scheduling.Schedule{
			Name: "resize",
			Periods: []scheduling.PeriodReference{
				{Period: &scheduling.Period{Name: "all-day", BeginTime: tod(6, 0), EndTime: tod(22, 0)}, InstanceSize: "m5.large"},
				{Period: &scheduling.Period{Name: "peak", BeginTime: tod(12, 0), EndTime: tod(14, 0)}, InstanceSize: "m5.4xlarge"},
			},
		}
		Expect(s.Evaluate(at(2024, time.July, 15, 10, 0)).DesiredSize).To(Equal("m5.large"))
		result := s.Evaluate(at(2024, time.July, 15, 13, 0))
		Expect(result.PeriodName).To(Equal("peak"))
		Expect(result.DesiredSize).To(Equal("m5.4xlarge"))
	})

	It("should never let a period without a begintime outrank one with a begintime", func() {
		s := &scheduling.Schedule{
			Name: "authority",
			Periods: []scheduling.PeriodReference{
				{Period: &scheduling.Period{Name: "always", Weekdays: scheduling.All{}, Monthdays: scheduling.SingleValueNumeric{Value: 15}}, InstanceSize: "small"},
				{Period: &scheduling.Period{Name: "timed", BeginTime: tod(9, 0), EndTime: tod(17, 0)}, InstanceSize: "large"},
			},
		}
		result := s.Evaluate(at(2024, time.July, 15, 12, 0))
		Expect(result.PeriodName).To(Equal("timed"))
		Expect(result.DesiredSize).To(Equal("large"))
	})

	It("should bridge back-to-back periods across the boundary minute", func() {
		s := &scheduling.Schedule{
			Name: "split-day",
			Periods: []scheduling.PeriodReference{
				{Period: &scheduling.Period{Name: "morning", BeginTime: tod(9, 0), EndTime: tod(12, 0)}, InstanceSize: "small"},
				{Period: &scheduling.Period{Name: "afternoon", BeginTime: tod(12, 1), EndTime: tod(17, 0)}, InstanceSize: "large"},
			},
		}
		// 12:00 is outside both periods, but morning ran at 11:59 and
		// afternoon runs at 12:01, so the upcoming period's result holds.
		result := s.Evaluate(at(2024, time.July, 15, 12, 0))
		Expect(result.State).To(Equal(scheduling.StateRunning))
		Expect(result.PeriodName).To(Equal("afternoon"))
		Expect(result.DesiredSize).To(Equal("large"))
	})

	It("should not bridge gaps wider than one minute", func() {
		s := &scheduling.Schedule{
			Name: "gapped",
			Periods: []scheduling.PeriodReference{
				{Period: &scheduling.Period{Name: "morning", BeginTime: tod(9, 0), EndTime: tod(12, 0)}},
				{Period: &scheduling.Period{Name: "afternoon", BeginTime: tod(12, 2), EndTime: tod(17, 0)}},
			},
		}
		Expect(s.Evaluate(at(2024, time.July, 15, 12, 0)).State).To(Equal(scheduling.StateStopped))
		Expect(s.Evaluate(at(2024, time.July, 15, 12, 1)).State).To(Equal(scheduling.StateStopped))
	})

	It("should short-circuit period evaluation under an override", func() {
		s := &scheduling.Schedule{
			Name:           "forced",
			OverrideStatus: scheduling.OverrideRunning,
			Periods:        []scheduling.PeriodReference{{Period: office, InstanceSize: "m5.large"}},
		}
		result := s.Evaluate(at(2024, time.July, 15, 3, 0))
		Expect(result.State).To(Equal(scheduling.StateRunning))
		Expect(result.PeriodName).To(Equal(scheduling.OverridePeriodName))
		Expect(result.DesiredSize).To(BeEmpty())

		s.OverrideStatus = scheduling.OverrideStopped
		Expect(s.Evaluate(at(2024, time.July, 15, 12, 0)).State).To(Equal(scheduling.StateStopped))
	})

	It("should evaluate in the schedule's timezone", func() {
		tz, err := time.LoadLocation("America/New_York")
		Expect(err).ToNot(HaveOccurred())
		s := &scheduling.Schedule{
			Name:     "eastern",
			Timezone: tz,
			Periods:  []scheduling.PeriodReference{{Period: office}},
		}
		// 14:00 UTC in July is 10:00 EDT, inside the window
		Expect(s.Evaluate(at(2024, time.July, 15, 14, 0)).State).To(Equal(scheduling.StateRunning))
		// 12:00 UTC is 08:00 EDT, before it
		Expect(s.Evaluate(at(2024, time.July, 15, 12, 0)).State).To(Equal(scheduling.StateStopped))
	})

	Describe("Validate", func() {
		It("should require an override or at least one period", func() {
			Expect((&scheduling.Schedule{Name: "empty"}).Validate()).ToNot(Succeed())
			Expect((&scheduling.Schedule{Name: "forced", OverrideStatus: scheduling.OverrideStopped}).Validate()).To(Succeed())
			Expect((&scheduling.Schedule{Name: "office", Periods: []scheduling.PeriodReference{{Period: office}}}).Validate()).To(Succeed())
		})
		It("should reject unknown override values", func() {
			Expect((&scheduling.Schedule{Name: "bad", OverrideStatus: scheduling.OverrideStatus("paused")}).Validate()).ToNot(Succeed())
		})
	})
})
