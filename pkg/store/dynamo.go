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

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
)

const (
	configTypeSchedule = "schedule"
	configTypePeriod   = "period"
)

// DynamoConfigStore keeps schedule and period definitions in a single
// table keyed by (type, name).
type DynamoConfigStore struct {
	api       sdk.DynamoDBAPI
	tableName string
}

func NewDynamoConfigStore(api sdk.DynamoDBAPI, tableName string) *DynamoConfigStore {
	return &DynamoConfigStore{api: api, tableName: tableName}
}

func (s *DynamoConfigStore) GetSchedules(ctx context.Context) ([]scheduling.ScheduleDefinition, error) {
	items, err := s.queryType(ctx, configTypeSchedule)
	if err != nil {
		return nil, err
	}
	return unmarshalAll[scheduling.ScheduleDefinition](items)
}

func (s *DynamoConfigStore) GetPeriods(ctx context.Context) ([]scheduling.PeriodDefinition, error) {
	items, err := s.queryType(ctx, configTypePeriod)
	if err != nil {
		return nil, err
	}
	return unmarshalAll[scheduling.PeriodDefinition](items)
}

func (s *DynamoConfigStore) PutSchedule(ctx context.Context, def scheduling.ScheduleDefinition) error {
	return s.putConfig(ctx, configTypeSchedule, def.Name, def)
}

func (s *DynamoConfigStore) PutPeriod(ctx context.Context, def scheduling.PeriodDefinition) error {
	return s.putConfig(ctx, configTypePeriod, def.Name, def)
}

func (s *DynamoConfigStore) DeleteSchedule(ctx context.Context, name string) error {
	return s.deleteConfig(ctx, configTypeSchedule, name)
}

func (s *DynamoConfigStore) DeletePeriod(ctx context.Context, name string) error {
	return s.deleteConfig(ctx, configTypePeriod, name)
}

func (s *DynamoConfigStore) queryType(ctx context.Context, configType string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("#t = :t"),
			ExpressionAttributeNames: map[string]string{
				"#t": "type",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberS{Value: configType},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying %s definitions, %w", configType, err)
		}
		items = append(items, out.Items...)
		if startKey = out.LastEvaluatedKey; startKey == nil {
			break
		}
	}
	return items, nil
}

func (s *DynamoConfigStore) putConfig(ctx context.Context, configType, name string, def any) error {
	if name == "" {
		return fmt.Errorf("%s name must not be empty", configType)
	}
	item, err := attributevalue.MarshalMap(def)
	if err != nil {
		return fmt.Errorf("marshaling %s %q, %w", configType, name, err)
	}
	item["type"] = &types.AttributeValueMemberS{Value: configType}
	if _, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("storing %s %q, %w", configType, name, err)
	}
	return nil
}

func (s *DynamoConfigStore) deleteConfig(ctx context.Context, configType, name string) error {
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"type": &types.AttributeValueMemberS{Value: configType},
			"name": &types.AttributeValueMemberS{Value: name},
		},
	}); err != nil {
		return fmt.Errorf("deleting %s %q, %w", configType, name, err)
	}
	return nil
}

func unmarshalAll[T any](items []map[string]types.AttributeValue) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, fmt.Errorf("unmarshaling %T, %w", v, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// registryItem is the persisted form of a RegisteredInstance; the
// partition key is the account, the sort key encodes
// region/service/type/id so per-target reads are a key range.
type registryItem struct {
	Account        string          `dynamodbav:"account"`
	SortKey        string          `dynamodbav:"sort_key"`
	ARN            string          `dynamodbav:"arn,omitempty"`
	Schedule       string          `dynamodbav:"schedule"`
	Name           string          `dynamodbav:"name,omitempty"`
	State          string          `dynamodbav:"state"`
	LastConfigured *LastConfigured `dynamodbav:"last_configured,omitempty"`
}

func toRegistryItem(instance *RegisteredInstance) registryItem {
	return registryItem{
		Account:        instance.Account,
		SortKey:        instance.SortKey(),
		ARN:            instance.ARN,
		Schedule:       instance.ScheduleName,
		Name:           instance.DisplayName,
		State:          string(instance.StoredState),
		LastConfigured: instance.LastConfigured,
	}
}

func (item registryItem) toInstance() (*RegisteredInstance, error) {
	region, service, resourceType, resourceID, err := parseSortKey(item.SortKey)
	if err != nil {
		return nil, err
	}
	state := scheduling.InstanceState(item.State)
	if state == "" {
		state = scheduling.InstanceStateUnknown
	}
	return &RegisteredInstance{
		Account:        item.Account,
		Region:         region,
		Service:        service,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		ARN:            item.ARN,
		ScheduleName:   item.Schedule,
		DisplayName:    item.Name,
		StoredState:    state,
		LastConfigured: item.LastConfigured,
	}, nil
}

// DynamoRegistry is the DynamoDB-backed resource registry.
type DynamoRegistry struct {
	api       sdk.DynamoDBAPI
	tableName string
}

func NewDynamoRegistry(api sdk.DynamoDBAPI, tableName string) *DynamoRegistry {
	return &DynamoRegistry{api: api, tableName: tableName}
}

func (r *DynamoRegistry) List(ctx context.Context) ([]*RegisteredInstance, error) {
	var instances []*RegisteredInstance
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scanning registry, %w", err)
		}
		page, err := r.instancesFromItems(out.Items)
		if err != nil {
			return nil, err
		}
		instances = append(instances, page...)
		if startKey = out.LastEvaluatedKey; startKey == nil {
			break
		}
	}
	return instances, nil
}

func (r *DynamoRegistry) ListTarget(ctx context.Context, target Target) ([]*RegisteredInstance, error) {
	var instances []*RegisteredInstance
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("account = :account AND begins_with(sort_key, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":account": &types.AttributeValueMemberS{Value: target.Account},
				":prefix":  &types.AttributeValueMemberS{Value: targetKeyPrefix(target)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying registry for %s, %w", target, err)
		}
		page, err := r.instancesFromItems(out.Items)
		if err != nil {
			return nil, err
		}
		instances = append(instances, page...)
		if startKey = out.LastEvaluatedKey; startKey == nil {
			break
		}
	}
	return instances, nil
}

func (r *DynamoRegistry) Register(ctx context.Context, instance *RegisteredInstance) error {
	item, err := attributevalue.MarshalMap(toRegistryItem(instance))
	if err != nil {
		return fmt.Errorf("marshaling registry item, %w", err)
	}
	if _, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(account) AND attribute_not_exists(sort_key)"),
	}); err != nil {
		return fmt.Errorf("registering %s, %w", instance.ResourceID, err)
	}
	return nil
}

func (r *DynamoRegistry) Put(ctx context.Context, instance *RegisteredInstance) error {
	item, err := attributevalue.MarshalMap(toRegistryItem(instance))
	if err != nil {
		return fmt.Errorf("marshaling registry item, %w", err)
	}
	if _, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("storing registry item for %s, %w", instance.ResourceID, err)
	}
	return nil
}

func (r *DynamoRegistry) SetState(ctx context.Context, instance *RegisteredInstance, state scheduling.InstanceState) error {
	instance.StoredState = state
	return r.Put(ctx, instance)
}

func (r *DynamoRegistry) Deregister(ctx context.Context, instance *RegisteredInstance) error {
	if _, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"account":  &types.AttributeValueMemberS{Value: instance.Account},
			"sort_key": &types.AttributeValueMemberS{Value: instance.SortKey()},
		},
	}); err != nil {
		return fmt.Errorf("deregistering %s, %w", instance.ResourceID, err)
	}
	return nil
}

func (r *DynamoRegistry) instancesFromItems(items []map[string]types.AttributeValue) ([]*RegisteredInstance, error) {
	rows, err := unmarshalAll[registryItem](items)
	if err != nil {
		return nil, err
	}
	instances := make([]*RegisteredInstance, 0, len(rows))
	for _, row := range rows {
		instance, err := row.toInstance()
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// mirrorItem is the persisted form of a MaintenanceWindow; the partition
// key is "<account>:<region>" and the sort key "<name>:<window_id>".
type mirrorItem struct {
	AccountRegion     string `dynamodbav:"account-region"`
	NameID            string `dynamodbav:"name-id"`
	WindowID          string `dynamodbav:"window_id"`
	WindowName        string `dynamodbav:"window_name"`
	Timezone          string `dynamodbav:"timezone,omitempty"`
	NextExecutionTime string `dynamodbav:"next_execution_time,omitempty"`
	DurationHours     int32  `dynamodbav:"duration"`
}

func toMirrorItem(w *MaintenanceWindow) mirrorItem {
	item := mirrorItem{
		AccountRegion: w.AccountRegion(),
		NameID:        w.NameID(),
		WindowID:      w.WindowID,
		WindowName:    w.Name,
		Timezone:      w.Timezone,
		DurationHours: w.DurationHours,
	}
	if w.NextExecutionTime != nil {
		item.NextExecutionTime = w.NextExecutionTime.Format(time.RFC3339)
	}
	return item
}

func (item mirrorItem) toWindow() (*MaintenanceWindow, error) {
	account, region, ok := splitPairKey(item.AccountRegion)
	if !ok {
		return nil, fmt.Errorf("malformed mirror partition key %q", item.AccountRegion)
	}
	window := &MaintenanceWindow{
		Account:       account,
		Region:        region,
		WindowID:      item.WindowID,
		Name:          item.WindowName,
		Timezone:      item.Timezone,
		DurationHours: item.DurationHours,
	}
	if item.NextExecutionTime != "" {
		next, err := time.Parse(time.RFC3339, item.NextExecutionTime)
		if err != nil {
			return nil, fmt.Errorf("parsing next execution time of window %q, %w", item.NameID, err)
		}
		window.NextExecutionTime = lo.ToPtr(next)
	}
	return window, nil
}

func splitPairKey(key string) (string, string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

// DynamoMaintenanceWindowStore is the DynamoDB-backed maintenance-window
// mirror.
type DynamoMaintenanceWindowStore struct {
	api       sdk.DynamoDBAPI
	tableName string
}

func NewDynamoMaintenanceWindowStore(api sdk.DynamoDBAPI, tableName string) *DynamoMaintenanceWindowStore {
	return &DynamoMaintenanceWindowStore{api: api, tableName: tableName}
}

func (s *DynamoMaintenanceWindowStore) List(ctx context.Context, account, region string) ([]*MaintenanceWindow, error) {
	var windows []*MaintenanceWindow
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("#pk = :pk"),
			ExpressionAttributeNames: map[string]string{
				"#pk": "account-region",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: account + ":" + region},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying maintenance window mirror for %s/%s, %w", account, region, err)
		}
		rows, err := unmarshalAll[mirrorItem](out.Items)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			window, err := row.toWindow()
			if err != nil {
				return nil, err
			}
			windows = append(windows, window)
		}
		if startKey = out.LastEvaluatedKey; startKey == nil {
			break
		}
	}
	return windows, nil
}

func (s *DynamoMaintenanceWindowStore) Put(ctx context.Context, window *MaintenanceWindow) error {
	item, err := attributevalue.MarshalMap(toMirrorItem(window))
	if err != nil {
		return fmt.Errorf("marshaling mirror item, %w", err)
	}
	if _, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("storing maintenance window %q, %w", window.NameID(), err)
	}
	return nil
}

func (s *DynamoMaintenanceWindowStore) Delete(ctx context.Context, window *MaintenanceWindow) error {
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"account-region": &types.AttributeValueMemberS{Value: window.AccountRegion()},
			"name-id":        &types.AttributeValueMemberS{Value: window.NameID()},
		},
	}); err != nil {
		return fmt.Errorf("deleting maintenance window %q, %w", window.NameID(), err)
	}
	return nil
}
