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

package autoscaling

import (
	"github.com/samber/lo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
)

var _ = Describe("CronRecurrence", func() {
	tod := scheduling.TimeOfDay{Hour: 9, Minute: 30}

	render := func(p *scheduling.Period) string {
		recurrence, err := cronRecurrence(tod, p)
		Expect(err).ToNot(HaveOccurred())
		return recurrence
	}

	It("should render a wildcard recurrence from the time of day alone", func() {
		Expect(render(&scheduling.Period{})).To(Equal("30 9 * * *"))
	})

	It("should carry monthday ranges and steps over directly", func() {
		Expect(render(&scheduling.Period{
			Monthdays: scheduling.Range{Start: 1, End: lo.ToPtr(15), Interval: 2},
		})).To(Equal("30 9 1-15/2 * *"))
		Expect(render(&scheduling.Period{
			Monthdays: scheduling.SingleValueNumeric{Value: 15},
		})).To(Equal("30 9 15 * *"))
	})

	It("should default an open monthday range end to 31", func() {
		Expect(render(&scheduling.Period{
			Monthdays: scheduling.Range{Start: 10, End: nil, Interval: 1},
		})).To(Equal("30 9 10-31 * *"))
	})

	It("should join monthday unions", func() {
		Expect(render(&scheduling.Period{
			Monthdays: scheduling.Union{Members: []scheduling.Expression{
				scheduling.SingleValueNumeric{Value: 1},
				scheduling.Range{Start: 10, End: lo.ToPtr(12), Interval: 1},
			}},
		})).To(Equal("30 9 1,10-12 * *"))
	})

	It("should materialize wrapping month ranges into explicit lists", func() {
		Expect(render(&scheduling.Period{
			Months: scheduling.Range{Start: 11, End: lo.ToPtr(2), Interval: 1},
		})).To(Equal("30 9 * 1,2,11,12 *"))
	})

	It("should renumber weekdays from Monday-zero to cron's Sunday-zero", func() {
		Expect(render(&scheduling.Period{
			Weekdays: scheduling.Range{Start: 0, End: lo.ToPtr(4), Interval: 1},
		})).To(Equal("30 9 * * 1,2,3,4,5"))
		// fri-mon
		Expect(render(&scheduling.Period{
			Weekdays: scheduling.Range{Start: 4, End: lo.ToPtr(0), Interval: 1},
		})).To(Equal("30 9 * * 0,1,5,6"))
	})

	It("should collapse a full weekday set to the wildcard", func() {
		Expect(render(&scheduling.Period{
			Weekdays: scheduling.Range{Start: 0, End: lo.ToPtr(6), Interval: 1},
		})).To(Equal("30 9 * * *"))
	})

	It("should reject calendar-dependent variants", func() {
		for _, p := range []*scheduling.Period{
			{Monthdays: scheduling.SingleValueLast{}},
			{Monthdays: scheduling.NearestWeekday{Day: 15}},
			{Weekdays: scheduling.NthWeekday{Weekday: 0, N: 2}},
			{Weekdays: scheduling.LastWeekday{Weekday: 4}},
			{Weekdays: scheduling.Union{Members: []scheduling.Expression{
				scheduling.SingleValueNumeric{Value: 0},
				scheduling.LastWeekday{Weekday: 4},
			}}},
		} {
			_, err := cronRecurrence(tod, p)
			Expect(err).To(HaveOccurred())
		}
	})

	It("should reject an empty monthday range", func() {
		_, err := cronRecurrence(tod, &scheduling.Period{
			Monthdays: scheduling.Range{Start: 25, End: lo.ToPtr(5), Interval: 1},
		})
		Expect(err).To(HaveOccurred())
	})
})
