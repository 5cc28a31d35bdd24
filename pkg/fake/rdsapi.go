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

	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
)

type RDSAPI struct {
	sdk.RDSAPI

	DescribeDBInstancesOutput AtomicPtr[rds.DescribeDBInstancesOutput]
	DescribeDBClustersOutput  AtomicPtr[rds.DescribeDBClustersOutput]

	DescribeDBInstancesError AtomicError
	DescribeDBClustersError  AtomicError
	StartDBInstanceError     AtomicError
	StopDBInstanceError      AtomicError
	StartDBClusterError      AtomicError
	StopDBClusterError       AtomicError

	CalledWithDescribeDBInstancesInput    AtomicPtrSlice[rds.DescribeDBInstancesInput]
	CalledWithDescribeDBClustersInput     AtomicPtrSlice[rds.DescribeDBClustersInput]
	CalledWithStartDBInstanceInput        AtomicPtrSlice[rds.StartDBInstanceInput]
	CalledWithStopDBInstanceInput         AtomicPtrSlice[rds.StopDBInstanceInput]
	CalledWithStartDBClusterInput         AtomicPtrSlice[rds.StartDBClusterInput]
	CalledWithStopDBClusterInput          AtomicPtrSlice[rds.StopDBClusterInput]
	CalledWithAddTagsToResourceInput      AtomicPtrSlice[rds.AddTagsToResourceInput]
	CalledWithRemoveTagsFromResourceInput AtomicPtrSlice[rds.RemoveTagsFromResourceInput]
}

func (a *RDSAPI) Reset() {
	a.DescribeDBInstancesOutput.Reset()
	a.DescribeDBClustersOutput.Reset()
	a.DescribeDBInstancesError.Reset()
	a.DescribeDBClustersError.Reset()
	a.StartDBInstanceError.Reset()
	a.StopDBInstanceError.Reset()
	a.StartDBClusterError.Reset()
	a.StopDBClusterError.Reset()
	a.CalledWithDescribeDBInstancesInput.Reset()
	a.CalledWithDescribeDBClustersInput.Reset()
	a.CalledWithStartDBInstanceInput.Reset()
	a.CalledWithStopDBInstanceInput.Reset()
	a.CalledWithStartDBClusterInput.Reset()
	a.CalledWithStopDBClusterInput.Reset()
	a.CalledWithAddTagsToResourceInput.Reset()
	a.CalledWithRemoveTagsFromResourceInput.Reset()
}

func (a *RDSAPI) DescribeDBInstances(_ context.Context, input *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	a.CalledWithDescribeDBInstancesInput.Add(input)
	if err := a.DescribeDBInstancesError.Get(); err != nil {
		return nil, err
	}
	if !a.DescribeDBInstancesOutput.IsNil() {
		return a.DescribeDBInstancesOutput.Clone(), nil
	}
	return &rds.DescribeDBInstancesOutput{}, nil
}

func (a *RDSAPI) DescribeDBClusters(_ context.Context, input *rds.DescribeDBClustersInput, _ ...func(*rds.Options)) (*rds.DescribeDBClustersOutput, error) {
	a.CalledWithDescribeDBClustersInput.Add(input)
	if err := a.DescribeDBClustersError.Get(); err != nil {
		return nil, err
	}
	if !a.DescribeDBClustersOutput.IsNil() {
		return a.DescribeDBClustersOutput.Clone(), nil
	}
	return &rds.DescribeDBClustersOutput{}, nil
}

func (a *RDSAPI) StartDBInstance(_ context.Context, input *rds.StartDBInstanceInput, _ ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error) {
	a.CalledWithStartDBInstanceInput.Add(input)
	if err := a.StartDBInstanceError.Get(); err != nil {
		return nil, err
	}
	return &rds.StartDBInstanceOutput{}, nil
}

func (a *RDSAPI) StopDBInstance(_ context.Context, input *rds.StopDBInstanceInput, _ ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error) {
	a.CalledWithStopDBInstanceInput.Add(input)
	if err := a.StopDBInstanceError.Get(); err != nil {
		return nil, err
	}
	return &rds.StopDBInstanceOutput{}, nil
}

func (a *RDSAPI) StartDBCluster(_ context.Context, input *rds.StartDBClusterInput, _ ...func(*rds.Options)) (*rds.StartDBClusterOutput, error) {
	a.CalledWithStartDBClusterInput.Add(input)
	if err := a.StartDBClusterError.Get(); err != nil {
		return nil, err
	}
	return &rds.StartDBClusterOutput{}, nil
}

func (a *RDSAPI) StopDBCluster(_ context.Context, input *rds.StopDBClusterInput, _ ...func(*rds.Options)) (*rds.StopDBClusterOutput, error) {
	a.CalledWithStopDBClusterInput.Add(input)
	if err := a.StopDBClusterError.Get(); err != nil {
		return nil, err
	}
	return &rds.StopDBClusterOutput{}, nil
}

func (a *RDSAPI) AddTagsToResource(_ context.Context, input *rds.AddTagsToResourceInput, _ ...func(*rds.Options)) (*rds.AddTagsToResourceOutput, error) {
	a.CalledWithAddTagsToResourceInput.Add(input)
	return &rds.AddTagsToResourceOutput{}, nil
}

func (a *RDSAPI) RemoveTagsFromResource(_ context.Context, input *rds.RemoveTagsFromResourceInput, _ ...func(*rds.Options)) (*rds.RemoveTagsFromResourceOutput, error) {
	a.CalledWithRemoveTagsFromResourceInput.Add(input)
	return &rds.RemoveTagsFromResourceOutput{}, nil
}
