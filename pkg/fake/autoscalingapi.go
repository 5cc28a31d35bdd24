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

package fake

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
)

type AutoScalingAPI struct {
	sdk.AutoScalingAPI

	DescribeAutoScalingGroupsOutput AtomicPtr[autoscaling.DescribeAutoScalingGroupsOutput]
	DescribeScheduledActionsOutput  AtomicPtr[autoscaling.DescribeScheduledActionsOutput]

	DescribeAutoScalingGroupsError     AtomicError
	DescribeScheduledActionsError      AtomicError
	PutScheduledUpdateGroupActionError AtomicError
	DeleteScheduledActionError         AtomicError

	CalledWithDescribeAutoScalingGroupsInput     AtomicPtrSlice[autoscaling.DescribeAutoScalingGroupsInput]
	CalledWithDescribeScheduledActionsInput      AtomicPtrSlice[autoscaling.DescribeScheduledActionsInput]
	CalledWithPutScheduledUpdateGroupActionInput AtomicPtrSlice[autoscaling.PutScheduledUpdateGroupActionInput]
	CalledWithDeleteScheduledActionInput         AtomicPtrSlice[autoscaling.DeleteScheduledActionInput]
	CalledWithCreateOrUpdateTagsInput            AtomicPtrSlice[autoscaling.CreateOrUpdateTagsInput]
}

func (a *AutoScalingAPI) Reset() {
	a.DescribeAutoScalingGroupsOutput.Reset()
	a.DescribeScheduledActionsOutput.Reset()
	a.DescribeAutoScalingGroupsError.Reset()
	a.DescribeScheduledActionsError.Reset()
	a.PutScheduledUpdateGroupActionError.Reset()
	a.DeleteScheduledActionError.Reset()
	a.CalledWithDescribeAutoScalingGroupsInput.Reset()
	a.CalledWithDescribeScheduledActionsInput.Reset()
	a.CalledWithPutScheduledUpdateGroupActionInput.Reset()
	a.CalledWithDeleteScheduledActionInput.Reset()
	a.CalledWithCreateOrUpdateTagsInput.Reset()
}

func (a *AutoScalingAPI) DescribeAutoScalingGroups(_ context.Context, input *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	a.CalledWithDescribeAutoScalingGroupsInput.Add(input)
	if err := a.DescribeAutoScalingGroupsError.Get(); err != nil {
		return nil, err
	}
	if !a.DescribeAutoScalingGroupsOutput.IsNil() {
		return a.DescribeAutoScalingGroupsOutput.Clone(), nil
	}
	return &autoscaling.DescribeAutoScalingGroupsOutput{}, nil
}

func (a *AutoScalingAPI) DescribeScheduledActions(_ context.Context, input *autoscaling.DescribeScheduledActionsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeScheduledActionsOutput, error) {
	a.CalledWithDescribeScheduledActionsInput.Add(input)
	if err := a.DescribeScheduledActionsError.Get(); err != nil {
		return nil, err
	}
	if !a.DescribeScheduledActionsOutput.IsNil() {
		return a.DescribeScheduledActionsOutput.Clone(), nil
	}
	return &autoscaling.DescribeScheduledActionsOutput{}, nil
}

func (a *AutoScalingAPI) PutScheduledUpdateGroupAction(_ context.Context, input *autoscaling.PutScheduledUpdateGroupActionInput, _ ...func(*autoscaling.Options)) (*autoscaling.PutScheduledUpdateGroupActionOutput, error) {
	a.CalledWithPutScheduledUpdateGroupActionInput.Add(input)
	if err := a.PutScheduledUpdateGroupActionError.Get(); err != nil {
		return nil, err
	}
	return &autoscaling.PutScheduledUpdateGroupActionOutput{}, nil
}

func (a *AutoScalingAPI) DeleteScheduledAction(_ context.Context, input *autoscaling.DeleteScheduledActionInput, _ ...func(*autoscaling.Options)) (*autoscaling.DeleteScheduledActionOutput, error) {
	a.CalledWithDeleteScheduledActionInput.Add(input)
	if err := a.DeleteScheduledActionError.Get(); err != nil {
		return nil, err
	}
	return &autoscaling.DeleteScheduledActionOutput{}, nil
}

func (a *AutoScalingAPI) CreateOrUpdateTags(_ context.Context, input *autoscaling.CreateOrUpdateTagsInput, _ ...func(*autoscaling.Options)) (*autoscaling.CreateOrUpdateTagsOutput, error) {
	a.CalledWithCreateOrUpdateTagsInput.Add(input)
	return &autoscaling.CreateOrUpdateTagsOutput{}, nil
}
