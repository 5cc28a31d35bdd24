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

package scheduling

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

// Dispatcher hands a per-target request to a runner.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *Request) error
}

// LambdaDispatcher invokes the runner function asynchronously, one
// invocation per target.
type LambdaDispatcher struct {
	api          sdk.LambdaAPI
	functionName string
}

func NewLambdaDispatcher(api sdk.LambdaAPI, functionName string) *LambdaDispatcher {
	return &LambdaDispatcher{api: api, functionName: functionName}
}

func (d *LambdaDispatcher) Dispatch(ctx context.Context, req *Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling request for %s, %w", req.Target(), err)
	}
	out, err := d.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(d.functionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("invoking runner for %s, %w", req.Target(), err)
	}
	if out.FunctionError != nil {
		return fmt.Errorf("runner invocation for %s failed: %s", req.Target(), aws.ToString(out.FunctionError))
	}
	return nil
}

// LocalDispatcher runs the target in-process, for single-account daemon
// deployments. It shares the exact request document with the Lambda path.
type LocalDispatcher struct {
	runner *Runner
}

func NewLocalDispatcher(runner *Runner) *LocalDispatcher {
	return &LocalDispatcher{runner: runner}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, req *Request) error {
	if err := d.runner.Run(ctx, req); err != nil {
		// per-resource failures inside a target stay inside the target;
		// surfacing them here would fail the sibling dispatches
		logging.FromContext(ctx).With("target", req.Target().String()).Errorf("target run finished with errors: %s", err)
	}
	return nil
}
