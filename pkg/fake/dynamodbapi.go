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

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
)

type DynamoDBAPI struct {
	sdk.DynamoDBAPI

	QueryOutput AtomicPtr[dynamodb.QueryOutput]
	ScanOutput  AtomicPtr[dynamodb.ScanOutput]

	PutItemError    AtomicError
	DeleteItemError AtomicError
	QueryError      AtomicError
	ScanError       AtomicError

	CalledWithPutItemInput    AtomicPtrSlice[dynamodb.PutItemInput]
	CalledWithDeleteItemInput AtomicPtrSlice[dynamodb.DeleteItemInput]
	CalledWithQueryInput      AtomicPtrSlice[dynamodb.QueryInput]
	CalledWithScanInput       AtomicPtrSlice[dynamodb.ScanInput]
}

func (a *DynamoDBAPI) Reset() {
	a.QueryOutput.Reset()
	a.ScanOutput.Reset()
	a.PutItemError.Reset()
	a.DeleteItemError.Reset()
	a.QueryError.Reset()
	a.ScanError.Reset()
	a.CalledWithPutItemInput.Reset()
	a.CalledWithDeleteItemInput.Reset()
	a.CalledWithQueryInput.Reset()
	a.CalledWithScanInput.Reset()
}

func (a *DynamoDBAPI) PutItem(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	a.CalledWithPutItemInput.Add(input)
	if err := a.PutItemError.Get(); err != nil {
		return nil, err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (a *DynamoDBAPI) DeleteItem(_ context.Context, input *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	a.CalledWithDeleteItemInput.Add(input)
	if err := a.DeleteItemError.Get(); err != nil {
		return nil, err
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (a *DynamoDBAPI) Query(_ context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	a.CalledWithQueryInput.Add(input)
	if err := a.QueryError.Get(); err != nil {
		return nil, err
	}
	if !a.QueryOutput.IsNil() {
		return a.QueryOutput.Clone(), nil
	}
	return &dynamodb.QueryOutput{}, nil
}

func (a *DynamoDBAPI) Scan(_ context.Context, input *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	a.CalledWithScanInput.Add(input)
	if err := a.ScanError.Get(); err != nil {
		return nil, err
	}
	if !a.ScanOutput.IsNil() {
		return a.ScanOutput.Clone(), nil
	}
	return &dynamodb.ScanOutput{}, nil
}
