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

package ec2_test

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/fake"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers/ec2"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling/decision"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

var startedTags = []providers.TagTemplate{{Key: "scheduler:started", Value: "{year}-{month}-{day}"}}
var stoppedTags = []providers.TagTemplate{{Key: "scheduler:stopped", Value: "at {hour}:{minute}"}}

func newAdapter() *ec2.Adapter {
	return ec2.NewAdapter(ec2api, startedTags, stoppedTags)
}

func registered(id string) *store.RegisteredInstance {
	return &store.RegisteredInstance{
		Account:      "111122223333",
		Region:       "us-east-1",
		Service:      store.ServiceEC2,
		ResourceType: "instance",
		ResourceID:   id,
		ScheduleName: "office",
	}
}

func describedInstance(id string, state ec2types.InstanceStateName, instanceType ec2types.InstanceType) ec2types.Instance {
	return ec2types.Instance{
		InstanceId:   aws.String(id),
		State:        &ec2types.InstanceState{Name: state},
		InstanceType: instanceType,
		Tags:         []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String("web-" + id)}},
	}
}

func startDecision(desiredSize string) decision.Decision {
	return decision.Decision{
		Action:   scheduling.ActionStart,
		NewState: scheduling.InstanceStateRunning,
		Schedule: scheduling.Result{State: scheduling.StateRunning, DesiredSize: desiredSize, PeriodName: "office-hours"},
	}
}

var stopDecision = decision.Decision{
	Action:   scheduling.ActionStop,
	NewState: scheduling.InstanceStateStopped,
	Schedule: scheduling.Result{State: scheduling.StateStopped},
}

var _ = Describe("Describe", func() {
	It("should map provider state onto runtime info", func() {
		ec2api.DescribeInstancesOutput.Set(&awsec2.DescribeInstancesOutput{
			Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{
				describedInstance("i-1", ec2types.InstanceStateNameRunning, ec2types.InstanceTypeM5Large),
				describedInstance("i-2", ec2types.InstanceStateNameStopped, ec2types.InstanceTypeM5Xlarge),
				describedInstance("i-3", ec2types.InstanceStateNameStopping, ec2types.InstanceTypeM5Large),
			}}},
		})
		infos, err := newAdapter().Describe(ctx, []*store.RegisteredInstance{registered("i-1"), registered("i-2"), registered("i-3")})
		Expect(err).ToNot(HaveOccurred())
		Expect(infos).To(HaveLen(3))
		Expect(infos["i-1"].Running).To(BeTrue())
		Expect(infos["i-1"].Name).To(Equal("web-i-1"))
		Expect(infos["i-1"].InstanceType).To(Equal("m5.large"))
		Expect(infos["i-2"].Stopped).To(BeTrue())
		Expect(infos["i-3"].Running).To(BeFalse())
		Expect(infos["i-3"].Stopped).To(BeFalse())
		Expect(infos["i-3"].State).To(Equal("stopping"))
	})

	It("should fall back to individual describes when a stale id fails the batch", func() {
		ec2api.DescribeInstancesError.Set(fake.NewAPIError("InvalidInstanceID.NotFound"))
		ec2api.DescribeInstancesOutput.Set(&awsec2.DescribeInstancesOutput{
			Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{
				describedInstance("i-1", ec2types.InstanceStateNameRunning, ec2types.InstanceTypeM5Large),
			}}},
		})
		infos, err := newAdapter().Describe(ctx, []*store.RegisteredInstance{registered("i-1"), registered("i-gone")})
		Expect(err).ToNot(HaveOccurred())
		Expect(infos).To(HaveKey("i-1"))
		Expect(infos).ToNot(HaveKey("i-gone"))
		// one failed batch call plus one call per id
		Expect(ec2api.CalledWithDescribeInstancesInput.Len()).To(Equal(3))
	})

	It("should surface unexpected describe failures", func() {
		ec2api.DescribeInstancesError.Set(errors.New("network down"))
		_, err := newAdapter().Describe(ctx, []*store.RegisteredInstance{registered("i-1")})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Start", func() {
	schedule := &scheduling.Schedule{Name: "office"}

	It("should start a stopped instance and swap the marker tags", func() {
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Stopped: true, InstanceType: "m5.large"},
			startDecision(""), schedule)
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome).To(Equal(providers.Outcome{ActionTaken: scheduling.ActionStart, NewState: scheduling.InstanceStateRunning}))
		Expect(ec2api.CalledWithStartInstancesInput.Len()).To(Equal(1))
		Expect(ec2api.CalledWithStartInstancesInput.Pop().InstanceIds).To(ConsistOf("i-1"))

		deleted := ec2api.CalledWithDeleteTagsInput.Pop()
		Expect(aws.ToString(deleted.Tags[0].Key)).To(Equal("scheduler:stopped"))
		created := ec2api.CalledWithCreateTagsInput.Pop()
		Expect(aws.ToString(created.Tags[0].Key)).To(Equal("scheduler:started"))
		Expect(aws.ToString(created.Tags[0].Value)).ToNot(ContainSubstring("{"))
	})

	It("should not start an already running instance", func() {
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Running: true},
			startDecision(""), schedule)
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.ActionTaken).To(Equal(scheduling.ActionDoNothing))
		Expect(ec2api.CalledWithStartInstancesInput.Len()).To(Equal(0))
	})

	It("should resize before starting when the period requests a size", func() {
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Stopped: true, InstanceType: "m5.large"},
			startDecision("m5.xlarge"), schedule)
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome).To(Equal(providers.Outcome{ActionTaken: scheduling.ActionConfigure, NewState: scheduling.InstanceStateConfigured}))
		modify := ec2api.CalledWithModifyInstanceAttributeInput.Pop()
		Expect(aws.ToString(modify.InstanceType.Value)).To(Equal("m5.xlarge"))
		Expect(ec2api.CalledWithStartInstancesInput.Len()).To(Equal(1))
	})

	It("should skip the resize when the instance already has the desired type", func() {
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Stopped: true, InstanceType: "m5.xlarge"},
			startDecision("m5.xlarge"), schedule)
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.ActionTaken).To(Equal(scheduling.ActionStart))
		Expect(ec2api.CalledWithModifyInstanceAttributeInput.Len()).To(Equal(0))
	})

	It("should fall through the type list on insufficient capacity", func() {
		ec2api.StartInstancesError.Set(fake.NewAPIError("InsufficientInstanceCapacity"))
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Stopped: true, InstanceType: "m5.large"},
			startDecision("m5.large, m5.xlarge"), schedule)
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome).To(Equal(providers.Outcome{ActionTaken: scheduling.ActionConfigure, NewState: scheduling.InstanceStateConfigured}))
		// first candidate hit the capacity error, second resized and started
		Expect(ec2api.CalledWithStartInstancesInput.Len()).To(Equal(2))
		modify := ec2api.CalledWithModifyInstanceAttributeInput.Pop()
		Expect(aws.ToString(modify.InstanceType.Value)).To(Equal("m5.xlarge"))
	})

	It("should mark the start failed after exhausting the type list", func() {
		ec2api.StartInstancesError.Set(fake.NewAPIError("InsufficientInstanceCapacity"), fake.MaxCalls(0))
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Stopped: true, InstanceType: "m5.large"},
			startDecision("m5.large,m5.xlarge"), schedule)
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome).To(Equal(providers.Outcome{ActionTaken: scheduling.ActionStart, NewState: scheduling.InstanceStateStartFailed}))
	})

	It("should retry a throttled start", func() {
		ec2api.StartInstancesError.Set(fake.NewAPIError("RequestLimitExceeded"))
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Stopped: true},
			startDecision(""), schedule)
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.NewState).To(Equal(scheduling.InstanceStateRunning))
		Expect(ec2api.CalledWithStartInstancesInput.Len()).To(Equal(2))
	})

	It("should surface non-capacity start failures", func() {
		ec2api.StartInstancesError.Set(fake.NewAPIError("IncorrectInstanceState"))
		_, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Stopped: true},
			startDecision(""), schedule)
		Expect(err).To(HaveOccurred())
		Expect(ec2api.CalledWithCreateTagsInput.Len()).To(Equal(0))
	})
})

var _ = Describe("Stop", func() {
	It("should stop a running instance and swap the marker tags", func() {
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Running: true},
			stopDecision, &scheduling.Schedule{Name: "office"})
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome).To(Equal(providers.Outcome{ActionTaken: scheduling.ActionStop, NewState: scheduling.InstanceStateStopped}))
		stop := ec2api.CalledWithStopInstancesInput.Pop()
		Expect(aws.ToBool(stop.Hibernate)).To(BeFalse())
		deleted := ec2api.CalledWithDeleteTagsInput.Pop()
		Expect(aws.ToString(deleted.Tags[0].Key)).To(Equal("scheduler:started"))
		created := ec2api.CalledWithCreateTagsInput.Pop()
		Expect(aws.ToString(created.Tags[0].Key)).To(Equal("scheduler:stopped"))
	})

	It("should not stop an already stopped instance", func() {
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Stopped: true},
			stopDecision, &scheduling.Schedule{Name: "office"})
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.ActionTaken).To(Equal(scheduling.ActionDoNothing))
		Expect(ec2api.CalledWithStopInstancesInput.Len()).To(Equal(0))
	})

	It("should request hibernation when the schedule asks for it", func() {
		_, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Running: true},
			stopDecision, &scheduling.Schedule{Name: "office", Hibernate: true})
		Expect(err).ToNot(HaveOccurred())
		stop := ec2api.CalledWithStopInstancesInput.Pop()
		Expect(aws.ToBool(stop.Hibernate)).To(BeTrue())
	})

	It("should fall back to a plain stop when hibernation is unsupported", func() {
		ec2api.StopInstancesError.Set(fake.NewAPIError("UnsupportedHibernationConfiguration"))
		outcome, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Running: true},
			stopDecision, &scheduling.Schedule{Name: "office", Hibernate: true})
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.ActionTaken).To(Equal(scheduling.ActionStop))
		Expect(ec2api.CalledWithStopInstancesInput.Len()).To(Equal(2))
		retried := ec2api.CalledWithStopInstancesInput.Pop()
		Expect(retried.Hibernate).To(BeNil())
	})

	It("should surface stop failures", func() {
		ec2api.StopInstancesError.Set(fake.NewAPIError("IncorrectInstanceState"))
		_, err := newAdapter().Execute(ctx, registered("i-1"),
			providers.RuntimeInfo{ResourceID: "i-1", Running: true},
			stopDecision, &scheduling.Schedule{Name: "office"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("TagError", func() {
	It("should write the operator error tag", func() {
		newAdapter().TagError(ctx, registered("i-1"), "UnknownSchedule", "schedule \"office\" not found")
		created := ec2api.CalledWithCreateTagsInput.Pop()
		Expect(created.Resources).To(ConsistOf("i-1"))
		Expect(aws.ToString(created.Tags[0].Key)).To(Equal(providers.ErrorTagKey))
		Expect(aws.ToString(created.Tags[0].Value)).To(HavePrefix("UnknownSchedule"))
	})

	It("should swallow tagging failures", func() {
		ec2api.CreateTagsError.Set(errors.New("tagging denied"))
		adapter := newAdapter()
		Expect(func() { adapter.TagError(ctx, registered("i-1"), "UnknownSchedule", "x") }).ToNot(Panic())
	})
})

var _ = Describe("Service", func() {
	It("should identify as ec2", func() {
		Expect(newAdapter().Service()).To(Equal(store.ServiceEC2))
		Expect(strings.HasPrefix(registered("i-1").SortKey(), "resource#us-east-1#ec2#")).To(BeTrue())
	})
})
