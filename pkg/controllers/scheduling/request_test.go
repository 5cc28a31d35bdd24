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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/controllers/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

var _ = Describe("Request", func() {
	valid := func(service store.Service) *scheduling.Request {
		return &scheduling.Request{
			Action:  scheduling.ActionRun,
			Account: "111122223333",
			Region:  "us-east-1",
			Service: service,
		}
	}

	It("should accept run requests for every supported service", func() {
		for _, service := range []store.Service{store.ServiceEC2, store.ServiceRDS, store.ServiceAutoScaling} {
			Expect(valid(service).Validate()).To(Succeed())
		}
	})

	It("should reject unknown actions", func() {
		req := valid(store.ServiceEC2)
		req.Action = "scheduler:destroy"
		Expect(req.Validate()).ToNot(Succeed())
	})

	It("should reject requests without an account or region", func() {
		req := valid(store.ServiceEC2)
		req.Account = ""
		Expect(req.Validate()).ToNot(Succeed())

		req = valid(store.ServiceEC2)
		req.Region = ""
		Expect(req.Validate()).ToNot(Succeed())
	})

	It("should reject unknown services", func() {
		Expect(valid("elasticache").Validate()).ToNot(Succeed())
	})

	It("should address the target the orchestrator built it for", func() {
		Expect(valid(store.ServiceRDS).Target()).To(Equal(store.Target{
			Account: "111122223333",
			Region:  "us-east-1",
			Service: store.ServiceRDS,
		}))
	})
})
