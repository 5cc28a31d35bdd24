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

package options

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers"
)

func (o Options) Validate() (err error) {
	if o.IntervalMinutes < 1 {
		err = multierr.Append(err, fmt.Errorf("interval-minutes must be at least 1, got %d", o.IntervalMinutes))
	}
	if o.PayloadCeilingBytes < 1024 {
		err = multierr.Append(err, fmt.Errorf("payload-ceiling must be at least 1024 bytes, got %d", o.PayloadCeilingBytes))
	}
	if o.ConfigTableName == "" {
		err = multierr.Append(err, fmt.Errorf("CONFIG_TABLE is required"))
	}
	if o.RegistryTableName == "" {
		err = multierr.Append(err, fmt.Errorf("REGISTRY_TABLE is required"))
	}
	if o.MaintenanceWindowTableName == "" {
		err = multierr.Append(err, fmt.Errorf("MAINTENANCE_WINDOW_TABLE is required"))
	}
	if _, tzErr := time.LoadLocation(o.DefaultTimezone); tzErr != nil {
		err = multierr.Append(err, fmt.Errorf("%q is not a valid DEFAULT_TIMEZONE", o.DefaultTimezone))
	}
	switch DispatchMode(o.DispatchMode) {
	case DispatchLocal:
	case DispatchLambda:
		if o.RunnerFunctionName == "" {
			err = multierr.Append(err, fmt.Errorf("RUNNER_FUNCTION_NAME is required for lambda dispatch"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("dispatch-mode may only be either local or lambda"))
	}
	if _, tagErr := providers.ParseTagTemplates(o.StartedTags); tagErr != nil {
		err = multierr.Append(err, tagErr)
	}
	if _, tagErr := providers.ParseTagTemplates(o.StoppedTags); tagErr != nil {
		err = multierr.Append(err, tagErr)
	}
	return err
}

// GetDispatchMode returns the validated dispatch mode.
func (o Options) GetDispatchMode() DispatchMode {
	return DispatchMode(o.DispatchMode)
}
