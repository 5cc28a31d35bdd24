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

package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

const cloudwatchNamespace = "InstanceScheduler"

// Reporter pushes per-target counts to CloudWatch after each runner
// invocation. Disabled reporters drop everything; prometheus metrics are
// recorded either way.
type Reporter struct {
	api     sdk.CloudWatchAPI
	enabled bool
}

func NewReporter(api sdk.CloudWatchAPI, enabled bool) *Reporter {
	return &Reporter{api: api, enabled: enabled}
}

// ReportTarget records a finished target cycle. Best effort.
func (r *Reporter) ReportTarget(ctx context.Context, target store.Target, counts map[scheduling.RequestedAction]int, managed int, duration time.Duration) {
	TargetDuration.WithLabelValues(string(target.Service)).Observe(duration.Seconds())
	ManagedResources.WithLabelValues(string(target.Service), target.Account, target.Region).Set(float64(managed))
	for action, count := range counts {
		ActionsTotal.WithLabelValues(string(target.Service), string(action)).Add(float64(count))
	}
	if !r.enabled || r.api == nil {
		return
	}
	dimensions := []cwtypes.Dimension{
		{Name: aws.String("Service"), Value: aws.String(string(target.Service))},
		{Name: aws.String("Account"), Value: aws.String(target.Account)},
		{Name: aws.String("Region"), Value: aws.String(target.Region)},
	}
	now := time.Now()
	data := []cwtypes.MetricDatum{{
		MetricName: aws.String("ManagedResources"),
		Dimensions: dimensions,
		Timestamp:  aws.Time(now),
		Value:      aws.Float64(float64(managed)),
		Unit:       cwtypes.StandardUnitCount,
	}}
	for action, count := range counts {
		if action == scheduling.ActionDoNothing {
			continue
		}
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(string(action) + "Actions"),
			Dimensions: dimensions,
			Timestamp:  aws.Time(now),
			Value:      aws.Float64(float64(count)),
			Unit:       cwtypes.StandardUnitCount,
		})
	}
	if _, err := r.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(cloudwatchNamespace),
		MetricData: data,
	}); err != nil {
		logging.FromContext(ctx).Errorf("reporting cloudwatch metrics: %s", err)
	}
}
