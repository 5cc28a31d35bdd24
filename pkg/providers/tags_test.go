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

package providers_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers"
)

var _ = Describe("TagTemplates", func() {
	It("should parse a JSON template list", func() {
		templates, err := providers.ParseTagTemplates(`[{"Key": "scheduler:started", "Value": "{year}-{month}-{day}"}]`)
		Expect(err).ToNot(HaveOccurred())
		Expect(templates).To(HaveLen(1))
		Expect(templates[0].Key).To(Equal("scheduler:started"))
	})

	It("should yield no templates for empty input", func() {
		templates, err := providers.ParseTagTemplates("  ")
		Expect(err).ToNot(HaveOccurred())
		Expect(templates).To(BeEmpty())
	})

	It("should reject malformed JSON and empty keys", func() {
		_, err := providers.ParseTagTemplates(`{"Key": "not-a-list"}`)
		Expect(err).To(HaveOccurred())
		_, err = providers.ParseTagTemplates(`[{"Key": "", "Value": "x"}]`)
		Expect(err).To(HaveOccurred())
	})

	It("should resolve time macros against the local instant", func() {
		berlin, err := time.LoadLocation("Europe/Berlin")
		Expect(err).ToNot(HaveOccurred())
		lt := time.Date(2024, 7, 5, 9, 3, 0, 0, berlin)
		key, value := providers.TagTemplate{
			Key:   "scheduler:started",
			Value: "{year}-{month}-{day} {hour}:{minute} {timezone}",
		}.Resolve(lt)
		Expect(key).To(Equal("scheduler:started"))
		Expect(value).To(Equal("2024-07-05 09:03 Europe/Berlin"))
	})

	It("should render error tag values with code, message, and timestamp", func() {
		value := providers.ErrorTagValue("UnknownSchedule", "schedule \"ghost\" not found", time.Date(2024, 7, 5, 9, 0, 0, 0, time.UTC))
		Expect(value).To(HavePrefix("UnknownSchedule: "))
		Expect(value).To(ContainSubstring("2024-07-05T09:00:00Z"))
	})
})
