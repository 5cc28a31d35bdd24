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
	"errors"
	"flag"
	"os"
	"time"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/env"
)

type DispatchMode string

const (
	DispatchLocal  DispatchMode = "local"
	DispatchLambda DispatchMode = "lambda"
)

// Options for running the scheduler binaries.
type Options struct {
	*flag.FlagSet

	// General
	TagKey          string
	DefaultTimezone string
	Regions         []string
	IntervalMinutes int
	Debug           bool
	MetricsPort     int

	// Storage
	ConfigTableName            string
	RegistryTableName          string
	MaintenanceWindowTableName string

	// Dispatch
	DispatchMode        string
	RunnerFunctionName  string
	SchedulerRoleName   string
	PayloadCeilingBytes int
	DispatchParallelism int

	// Actions
	StartedTags             string
	StoppedTags             string
	EnableEC2               bool
	EnableRDS               bool
	EnableRDSClusters       bool
	EnableAutoScaling       bool
	EnableCloudWatchMetrics bool
	EventBusName            string
	ASGConfigTTL            time.Duration
	MaintenanceWindowLead   time.Duration
}

// New creates an Options struct and registers CLI flags and environment
// variables to fill-in the Options struct fields.
func New() *Options {
	opts := &Options{}
	f := flag.NewFlagSet("instance-scheduler", flag.ContinueOnError)
	opts.FlagSet = f

	// General
	f.StringVar(&opts.TagKey, "tag-key", env.WithDefaultString("SCHEDULE_TAG_KEY", "Schedule"), "The resource tag key whose value names the schedule")
	f.StringVar(&opts.DefaultTimezone, "default-timezone", env.WithDefaultString("DEFAULT_TIMEZONE", "UTC"), "The timezone applied to schedules that do not declare one")
	opts.Regions = env.WithDefaultStringSlice("SCHEDULING_REGIONS", nil)
	f.IntVar(&opts.IntervalMinutes, "interval-minutes", env.WithDefaultInt("SCHEDULING_INTERVAL_MINUTES", 5), "Minutes between scheduling cycles")
	f.BoolVar(&opts.Debug, "debug", env.WithDefaultBool("DEBUG_LOGGING", false), "Enable debug logging")
	f.IntVar(&opts.MetricsPort, "metrics-port", env.WithDefaultInt("METRICS_PORT", 8080), "The port the metric endpoint binds to")

	// Storage
	f.StringVar(&opts.ConfigTableName, "config-table", env.WithDefaultString("CONFIG_TABLE", ""), "The DynamoDB table holding schedule and period definitions")
	f.StringVar(&opts.RegistryTableName, "registry-table", env.WithDefaultString("REGISTRY_TABLE", ""), "The DynamoDB table holding registered resources and their stored state")
	f.StringVar(&opts.MaintenanceWindowTableName, "maintenance-window-table", env.WithDefaultString("MAINTENANCE_WINDOW_TABLE", ""), "The DynamoDB table mirroring SSM maintenance windows")

	// Dispatch
	f.StringVar(&opts.DispatchMode, "dispatch-mode", env.WithDefaultString("DISPATCH_MODE", string(DispatchLocal)), "How targets are dispatched, local or lambda")
	f.StringVar(&opts.RunnerFunctionName, "runner-function", env.WithDefaultString("RUNNER_FUNCTION_NAME", ""), "The Lambda function processing per-target requests, required for lambda dispatch")
	f.StringVar(&opts.SchedulerRoleName, "scheduler-role", env.WithDefaultString("SCHEDULER_ROLE_NAME", ""), "The IAM role name assumed in spoke accounts; empty limits scheduling to the hub account")
	f.IntVar(&opts.PayloadCeilingBytes, "payload-ceiling", env.WithDefaultInt("PAYLOAD_CEILING_BYTES", 120*1024), "Largest request payload the orchestrator will inline configuration into")
	f.IntVar(&opts.DispatchParallelism, "dispatch-parallelism", env.WithDefaultInt("DISPATCH_PARALLELISM", 8), "Targets dispatched concurrently per cycle")

	// Actions
	f.StringVar(&opts.StartedTags, "started-tags", env.WithDefaultString("STARTED_TAGS", ""), `JSON tag list written after a start, e.g. [{"Key":"started","Value":"{year}-{month}-{day}"}]`)
	f.StringVar(&opts.StoppedTags, "stopped-tags", env.WithDefaultString("STOPPED_TAGS", ""), "JSON tag list written after a stop")
	f.BoolVar(&opts.EnableEC2, "enable-ec2", env.WithDefaultBool("ENABLE_EC2", true), "Schedule EC2 instances")
	f.BoolVar(&opts.EnableRDS, "enable-rds", env.WithDefaultBool("ENABLE_RDS", true), "Schedule RDS instances")
	f.BoolVar(&opts.EnableRDSClusters, "enable-rds-clusters", env.WithDefaultBool("ENABLE_RDS_CLUSTERS", true), "Schedule RDS clusters")
	f.BoolVar(&opts.EnableAutoScaling, "enable-autoscaling", env.WithDefaultBool("ENABLE_AUTOSCALING", true), "Schedule auto-scaling groups")
	f.BoolVar(&opts.EnableCloudWatchMetrics, "enable-cloudwatch-metrics", env.WithDefaultBool("ENABLE_CLOUDWATCH_METRICS", false), "Push per-target operational metrics to CloudWatch")
	f.StringVar(&opts.EventBusName, "event-bus", env.WithDefaultString("EVENT_BUS_NAME", ""), "The global EventBridge bus scheduling actions are aggregated to, in addition to the local default bus")
	f.DurationVar(&opts.ASGConfigTTL, "asg-config-ttl", env.WithDefaultDuration("ASG_CONFIG_TTL", 24*time.Hour), "How long a written auto-scaling action set stays valid without reconfirmation")
	f.DurationVar(&opts.MaintenanceWindowLead, "maintenance-window-lead", env.WithDefaultDuration("MAINTENANCE_WINDOW_LEAD", 10*time.Minute), "How far before a maintenance window execution resources are started")
	return opts
}

// MustParse reads the user passed flags, environment variables, and default
// values. Options are validated and panics if an error is returned.
func (o *Options) MustParse() *Options {
	err := o.Parse(os.Args[1:])

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		panic(err)
	}
	if err := o.Validate(); err != nil {
		panic(err)
	}
	return o
}
