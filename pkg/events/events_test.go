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

package events_test

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/patrickmn/go-cache"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/events"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

var _ = Describe("EventBridgeEmitter", func() {
	event := func() events.Event {
		return events.Event{
			Account:         "111122223333",
			Region:          "us-east-1",
			Service:         store.ServiceEC2,
			ResourceID:      "i-1",
			ARN:             "arn:aws:ec2:us-east-1:111122223333:instance/i-1",
			Schedule:        "office",
			RequestedAction: "Start",
			ActionTaken:     "Start",
			NewState:        "running",
		}
	}

	It("should publish to the local bus and the configured global bus", func() {
		events.NewEventBridgeEmitter(ebapi, "scheduler-global-bus", nil).Emit(ctx, event())

		put := ebapi.CalledWithPutEventsInput.Pop()
		Expect(put.Entries).To(HaveLen(2))
		Expect(put.Entries[0].EventBusName).To(BeNil())
		Expect(aws.ToString(put.Entries[1].EventBusName)).To(Equal("scheduler-global-bus"))
		Expect(aws.ToString(put.Entries[0].Source)).To(Equal("instance-scheduler"))
		Expect(aws.ToString(put.Entries[0].Detail)).To(Equal(aws.ToString(put.Entries[1].Detail)))

		decoded := events.Event{}
		Expect(json.Unmarshal([]byte(aws.ToString(put.Entries[0].Detail)), &decoded)).To(Succeed())
		Expect(decoded).To(Equal(event()))
	})

	It("should carry the resource ARN on every entry", func() {
		events.NewEventBridgeEmitter(ebapi, "scheduler-global-bus", nil).Emit(ctx, event())
		put := ebapi.CalledWithPutEventsInput.Pop()
		Expect(put.Entries[0].Resources).To(ConsistOf("arn:aws:ec2:us-east-1:111122223333:instance/i-1"))
		Expect(put.Entries[1].Resources).To(ConsistOf("arn:aws:ec2:us-east-1:111122223333:instance/i-1"))
	})

	It("should publish only to the local bus when no global bus is configured", func() {
		events.NewEventBridgeEmitter(ebapi, "", nil).Emit(ctx, event())
		put := ebapi.CalledWithPutEventsInput.Pop()
		Expect(put.Entries).To(HaveLen(1))
		Expect(put.Entries[0].EventBusName).To(BeNil())
	})

	It("should suppress repeated identical events within the dedupe window", func() {
		emitter := events.NewEventBridgeEmitter(ebapi, "scheduler-bus", cache.New(time.Minute, time.Minute))
		emitter.Emit(ctx, event())
		emitter.Emit(ctx, event())
		Expect(ebapi.CalledWithPutEventsInput.Len()).To(Equal(1))

		other := event()
		other.ResourceID = "i-2"
		emitter.Emit(ctx, other)
		Expect(ebapi.CalledWithPutEventsInput.Len()).To(Equal(2))
	})

	It("should swallow publish failures", func() {
		ebapi.PutEventsError.Set(errors.New("bus unavailable"))
		Expect(func() {
			events.NewEventBridgeEmitter(ebapi, "scheduler-bus", nil).Emit(ctx, event())
		}).ToNot(Panic())
	})
})
