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

	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
)

type EC2API struct {
	sdk.EC2API

	DescribeInstancesOutput AtomicPtr[ec2.DescribeInstancesOutput]

	DescribeInstancesError       AtomicError
	StartInstancesError          AtomicError
	StopInstancesError           AtomicError
	ModifyInstanceAttributeError AtomicError
	CreateTagsError              AtomicError
	DeleteTagsError              AtomicError

	CalledWithDescribeInstancesInput       AtomicPtrSlice[ec2.DescribeInstancesInput]
	CalledWithStartInstancesInput          AtomicPtrSlice[ec2.StartInstancesInput]
	CalledWithStopInstancesInput           AtomicPtrSlice[ec2.StopInstancesInput]
	CalledWithModifyInstanceAttributeInput AtomicPtrSlice[ec2.ModifyInstanceAttributeInput]
	CalledWithCreateTagsInput              AtomicPtrSlice[ec2.CreateTagsInput]
	CalledWithDeleteTagsInput              AtomicPtrSlice[ec2.DeleteTagsInput]
}

func (a *EC2API) Reset() {
	a.DescribeInstancesOutput.Reset()
	a.DescribeInstancesError.Reset()
	a.StartInstancesError.Reset()
	a.StopInstancesError.Reset()
	a.ModifyInstanceAttributeError.Reset()
	a.CreateTagsError.Reset()
	a.DeleteTagsError.Reset()
	a.CalledWithDescribeInstancesInput.Reset()
	a.CalledWithStartInstancesInput.Reset()
	a.CalledWithStopInstancesInput.Reset()
	a.CalledWithModifyInstanceAttributeInput.Reset()
	a.CalledWithCreateTagsInput.Reset()
	a.CalledWithDeleteTagsInput.Reset()
}

func (a *EC2API) DescribeInstances(_ context.Context, input *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	a.CalledWithDescribeInstancesInput.Add(input)
	if err := a.DescribeInstancesError.Get(); err != nil {
		return nil, err
	}
	if !a.DescribeInstancesOutput.IsNil() {
		return a.DescribeInstancesOutput.Clone(), nil
	}
	return &ec2.DescribeInstancesOutput{}, nil
}

func (a *EC2API) StartInstances(_ context.Context, input *ec2.StartInstancesInput, _ ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	a.CalledWithStartInstancesInput.Add(input)
	if err := a.StartInstancesError.Get(); err != nil {
		return nil, err
	}
	return &ec2.StartInstancesOutput{}, nil
}

func (a *EC2API) StopInstances(_ context.Context, input *ec2.StopInstancesInput, _ ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	a.CalledWithStopInstancesInput.Add(input)
	if err := a.StopInstancesError.Get(); err != nil {
		return nil, err
	}
	return &ec2.StopInstancesOutput{}, nil
}

func (a *EC2API) ModifyInstanceAttribute(_ context.Context, input *ec2.ModifyInstanceAttributeInput, _ ...func(*ec2.Options)) (*ec2.ModifyInstanceAttributeOutput, error) {
	a.CalledWithModifyInstanceAttributeInput.Add(input)
	if err := a.ModifyInstanceAttributeError.Get(); err != nil {
		return nil, err
	}
	return &ec2.ModifyInstanceAttributeOutput{}, nil
}

func (a *EC2API) CreateTags(_ context.Context, input *ec2.CreateTagsInput, _ ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	a.CalledWithCreateTagsInput.Add(input)
	if err := a.CreateTagsError.Get(); err != nil {
		return nil, err
	}
	return &ec2.CreateTagsOutput{}, nil
}

func (a *EC2API) DeleteTags(_ context.Context, input *ec2.DeleteTagsInput, _ ...func(*ec2.Options)) (*ec2.DeleteTagsOutput, error) {
	a.CalledWithDeleteTagsInput.Add(input)
	if err := a.DeleteTagsError.Get(); err != nil {
		return nil, err
	}
	return &ec2.DeleteTagsOutput{}, nil
}
