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

// The runner binary processes exactly one scheduling request document and
// exits, mirroring a Lambda invocation. The document is read from the path
// given as the first argument, or stdin when the argument is absent or "-".
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/controllers/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/operator"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/operator/options"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

// invocationTimeout bounds one target run; the runner flushes partial
// results before it expires.
const invocationTimeout = 15 * time.Minute

func main() {
	opts := options.New().MustParse()
	logger := logging.NewLogger(opts.Debug).Named("runner")
	ctx := logging.WithLogger(context.Background(), logger)
	ctx, cancel := context.WithTimeout(ctx, invocationTimeout)
	defer cancel()

	req, err := readRequest(opts.Args())
	if err != nil {
		panic(fmt.Sprintf("Unable to read request, %s", err))
	}
	op, err := operator.NewOperator(ctx, opts)
	if err != nil {
		panic(fmt.Sprintf("Unable to build operator, %s", err))
	}
	runner := scheduling.NewRunner(op, op.ConfigStore, op.Registry, op.Emitter, op.Reporter, opts.DefaultTimezone)
	if err := runner.Run(ctx, req); err != nil {
		logger.Errorf("target run finished with errors: %s", err)
		os.Exit(1)
	}
}

func readRequest(args []string) (*scheduling.Request, error) {
	var reader io.Reader = os.Stdin
	if len(args) > 0 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer file.Close()
		reader = file
	}
	req := &scheduling.Request{}
	if err := json.NewDecoder(reader).Decode(req); err != nil {
		return nil, fmt.Errorf("decoding request document, %w", err)
	}
	return req, nil
}
