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

// Package events publishes scheduling actions to an event bus so other
// systems can react to starts and stops without polling the registry.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/patrickmn/go-cache"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/aws/sdk"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/utils/logging"
)

const (
	eventSource     = "instance-scheduler"
	eventDetailType = "Scheduling Action"
)

// Event is the detail document of one scheduling action.
type Event struct {
	Account         string        `json:"account"`
	Region          string        `json:"region"`
	Service         store.Service `json:"service"`
	ResourceID      string        `json:"resource_id"`
	ARN             string        `json:"arn,omitempty"`
	Schedule        string        `json:"schedule"`
	RequestedAction string        `json:"requested_action"`
	ActionTaken     string        `json:"action_taken"`
	NewState        string        `json:"new_state"`
	Reason          string        `json:"reason,omitempty"`
}

// Emitter publishes scheduling events. Emission is best effort; a bus
// outage never fails a scheduling cycle.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// EventBridgeEmitter publishes each event to the local default bus and,
// when a global bus is configured, to that bus as well. Repeat emissions of
// an identical event within the dedupe TTL are suppressed; retried cycles
// after a partial failure would otherwise double-publish every action that
// did succeed.
type EventBridgeEmitter struct {
	api           sdk.EventBridgeAPI
	globalBusName string
	dedupe        *cache.Cache
}

func NewEventBridgeEmitter(api sdk.EventBridgeAPI, globalBusName string, dedupe *cache.Cache) *EventBridgeEmitter {
	return &EventBridgeEmitter{api: api, globalBusName: globalBusName, dedupe: dedupe}
}

func (e *EventBridgeEmitter) Emit(ctx context.Context, event Event) {
	logger := logging.FromContext(ctx)
	detail, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("marshaling scheduling event: %s", err)
		return
	}
	key := string(detail)
	if e.dedupe != nil {
		if _, seen := e.dedupe.Get(key); seen {
			return
		}
		e.dedupe.SetDefault(key, struct{}{})
	}
	entry := ebtypes.PutEventsRequestEntry{
		Source:     aws.String(eventSource),
		DetailType: aws.String(eventDetailType),
		Detail:     aws.String(string(detail)),
	}
	if event.ARN != "" {
		entry.Resources = []string{event.ARN}
	}
	entries := []ebtypes.PutEventsRequestEntry{entry}
	if e.globalBusName != "" {
		global := entry
		global.EventBusName = aws.String(e.globalBusName)
		entries = append(entries, global)
	}
	out, err := e.api.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		logger.Errorf("publishing scheduling event: %s", err)
		return
	}
	if out.FailedEntryCount > 0 {
		for _, result := range out.Entries {
			if result.ErrorCode != nil {
				logger.Errorf("scheduling event rejected: %s", fmt.Sprintf("%s: %s", aws.ToString(result.ErrorCode), aws.ToString(result.ErrorMessage)))
			}
		}
	}
}
