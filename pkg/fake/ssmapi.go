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

	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
)

type SSMAPI struct {
	sdk.SSMAPI

	DescribeMaintenanceWindowsOutput AtomicPtr[ssm.DescribeMaintenanceWindowsOutput]
	DescribeMaintenanceWindowsError  AtomicError

	CalledWithDescribeMaintenanceWindowsInput AtomicPtrSlice[ssm.DescribeMaintenanceWindowsInput]
}

func (a *SSMAPI) Reset() {
	a.DescribeMaintenanceWindowsOutput.Reset()
	a.DescribeMaintenanceWindowsError.Reset()
	a.CalledWithDescribeMaintenanceWindowsInput.Reset()
}

func (a *SSMAPI) DescribeMaintenanceWindows(_ context.Context, input *ssm.DescribeMaintenanceWindowsInput, _ ...func(*ssm.Options)) (*ssm.DescribeMaintenanceWindowsOutput, error) {
	a.CalledWithDescribeMaintenanceWindowsInput.Add(input)
	if err := a.DescribeMaintenanceWindowsError.Get(); err != nil {
		return nil, err
	}
	if !a.DescribeMaintenanceWindowsOutput.IsNil() {
		return a.DescribeMaintenanceWindowsOutput.Clone(), nil
	}
	return &ssm.DescribeMaintenanceWindowsOutput{}, nil
}
