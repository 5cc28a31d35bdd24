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

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
)

type LambdaAPI struct {
	sdk.LambdaAPI

	InvokeOutput AtomicPtr[lambda.InvokeOutput]
	InvokeError  AtomicError

	CalledWithInvokeInput AtomicPtrSlice[lambda.InvokeInput]
}

func (a *LambdaAPI) Reset() {
	a.InvokeOutput.Reset()
	a.InvokeError.Reset()
	a.CalledWithInvokeInput.Reset()
}

func (a *LambdaAPI) Invoke(_ context.Context, input *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	a.CalledWithInvokeInput.Add(input)
	if err := a.InvokeError.Get(); err != nil {
		return nil, err
	}
	if !a.InvokeOutput.IsNil() {
		return a.InvokeOutput.Clone(), nil
	}
	return &lambda.InvokeOutput{StatusCode: 202}, nil
}

type EventBridgeAPI struct {
	sdk.EventBridgeAPI

	PutEventsOutput AtomicPtr[eventbridge.PutEventsOutput]
	PutEventsError  AtomicError

	CalledWithPutEventsInput AtomicPtrSlice[eventbridge.PutEventsInput]
}

func (a *EventBridgeAPI) Reset() {
	a.PutEventsOutput.Reset()
	a.PutEventsError.Reset()
	a.CalledWithPutEventsInput.Reset()
}

func (a *EventBridgeAPI) PutEvents(_ context.Context, input *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	a.CalledWithPutEventsInput.Add(input)
	if err := a.PutEventsError.Get(); err != nil {
		return nil, err
	}
	if !a.PutEventsOutput.IsNil() {
		return a.PutEventsOutput.Clone(), nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

type CloudWatchAPI struct {
	sdk.CloudWatchAPI

	PutMetricDataError AtomicError

	CalledWithPutMetricDataInput AtomicPtrSlice[cloudwatch.PutMetricDataInput]
}

func (a *CloudWatchAPI) Reset() {
	a.PutMetricDataError.Reset()
	a.CalledWithPutMetricDataInput.Reset()
}

func (a *CloudWatchAPI) PutMetricData(_ context.Context, input *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	a.CalledWithPutMetricDataInput.Add(input)
	if err := a.PutMetricDataError.Get(); err != nil {
		return nil, err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}
