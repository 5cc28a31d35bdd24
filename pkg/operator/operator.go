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

// Package operator wires configuration, stores, and per-target AWS clients
// together for the scheduler binaries. It owns cross-account role
// assumption: hub-account credentials come from the default chain, spoke
// accounts get cached assume-role credentials.
package operator

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	awsautoscaling "github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	awsrds "github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/patrickmn/go-cache"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/controllers/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/events"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/metrics"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/operator/options"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers"
	asgprovider "github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers/autoscaling"
	ec2provider "github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers/ec2"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers/maintenancewindow"
	rdsprovider "github.com/aws-solutions/instance-scheduler-on-aws/pkg/providers/rds"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

const roleSessionName = "instance-scheduler"

// Operator holds the hub-account surface shared by the binaries and
// builds the spoke-account surface on demand.
type Operator struct {
	Options *options.Options

	ConfigStore store.ConfigStore
	Registry    store.Registry
	Mirror      store.MaintenanceWindowStore
	Emitter     events.Emitter
	Reporter    *metrics.Reporter
	LambdaAPI   *lambda.Client

	hubConfig   aws.Config
	hubAccount  string
	stsClient   sdk.STSAPI
	startedTags []providers.TagTemplate
	stoppedTags []providers.TagTemplate

	credsCache   *cache.Cache
	mwFetchCache *cache.Cache
}

func NewOperator(ctx context.Context, opts *options.Options) (*Operator, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws configuration, %w", err)
	}
	stsClient := sts.NewFromConfig(cfg)
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("resolving hub account, %w", err)
	}

	dynamo := dynamodb.NewFromConfig(cfg)
	configStore := store.NewCachedConfigStore(
		store.NewDynamoConfigStore(dynamo, opts.ConfigTableName),
		cache.New(time.Minute, 2*time.Minute),
	)
	emitter := events.NewEventBridgeEmitter(
		eventbridge.NewFromConfig(cfg),
		opts.EventBusName,
		cache.New(15*time.Minute, 30*time.Minute),
	)
	startedTags, err := providers.ParseTagTemplates(opts.StartedTags)
	if err != nil {
		return nil, err
	}
	stoppedTags, err := providers.ParseTagTemplates(opts.StoppedTags)
	if err != nil {
		return nil, err
	}

	return &Operator{
		Options:      opts,
		ConfigStore:  configStore,
		Registry:     store.NewDynamoRegistry(dynamo, opts.RegistryTableName),
		Mirror:       store.NewDynamoMaintenanceWindowStore(dynamo, opts.MaintenanceWindowTableName),
		Emitter:      emitter,
		Reporter:     metrics.NewReporter(cloudwatch.NewFromConfig(cfg), opts.EnableCloudWatchMetrics),
		LambdaAPI:    lambda.NewFromConfig(cfg),
		hubConfig:    cfg,
		hubAccount:   aws.ToString(identity.Account),
		stsClient:    stsClient,
		startedTags:  startedTags,
		stoppedTags:  stoppedTags,
		credsCache:   cache.New(30*time.Minute, time.Hour),
		mwFetchCache: cache.New(time.Minute, 2*time.Minute),
	}, nil
}

// Adapter builds the service adapter for one target with credentials for
// the target's account.
func (o *Operator) Adapter(ctx context.Context, target store.Target) (providers.Adapter, error) {
	cfg, err := o.configFor(target.Account, target.Region)
	if err != nil {
		return nil, err
	}
	switch target.Service {
	case store.ServiceEC2:
		if !o.Options.EnableEC2 {
			return nil, fmt.Errorf("ec2 scheduling is disabled")
		}
		return ec2provider.NewAdapter(awsec2.NewFromConfig(cfg), o.startedTags, o.stoppedTags), nil
	case store.ServiceRDS:
		if !o.Options.EnableRDS {
			return nil, fmt.Errorf("rds scheduling is disabled")
		}
		return rdsprovider.NewAdapter(awsrds.NewFromConfig(cfg), o.startedTags, o.stoppedTags), nil
	case store.ServiceAutoScaling:
		if !o.Options.EnableAutoScaling {
			return nil, fmt.Errorf("autoscaling scheduling is disabled")
		}
		return asgprovider.NewAdapter(awsautoscaling.NewFromConfig(cfg), o.Options.ASGConfigTTL), nil
	default:
		return nil, fmt.Errorf("unsupported service %q", target.Service)
	}
}

// MaintenanceWindows builds the maintenance-window context of one
// (account, region). The fetch cache is shared across targets so the
// ec2/rds/autoscaling runners of one process fetch once.
func (o *Operator) MaintenanceWindows(ctx context.Context, account, region string) (scheduling.MaintenanceWindowContext, error) {
	cfg, err := o.configFor(account, region)
	if err != nil {
		return nil, err
	}
	margin := time.Duration(o.Options.IntervalMinutes)*time.Minute + o.Options.MaintenanceWindowLead
	return maintenancewindow.NewProvider(ssm.NewFromConfig(cfg), o.Mirror, account, region, margin, o.mwFetchCache), nil
}

// configFor returns the hub configuration pinned to the region, swapping
// in cached assume-role credentials for spoke accounts.
func (o *Operator) configFor(account, region string) (aws.Config, error) {
	cfg := o.hubConfig.Copy()
	if region != "" {
		cfg.Region = region
	}
	if account == "" || account == o.hubAccount {
		return cfg, nil
	}
	if o.Options.SchedulerRoleName == "" {
		return aws.Config{}, fmt.Errorf("account %s requires SCHEDULER_ROLE_NAME for cross-account scheduling", account)
	}
	if cached, ok := o.credsCache.Get(account); ok {
		cfg.Credentials = cached.(aws.CredentialsProvider)
		return cfg, nil
	}
	provider := aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(
		o.stsClient,
		fmt.Sprintf("arn:aws:iam::%s:role/%s", account, o.Options.SchedulerRoleName),
		func(aro *stscreds.AssumeRoleOptions) { aro.RoleSessionName = roleSessionName },
	))
	o.credsCache.SetDefault(account, provider)
	cfg.Credentials = provider
	return cfg, nil
}
