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
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/scheduling"
	"github.com/aws-solutions/instance-scheduler-on-aws/pkg/store"
)

// Registry is an in-memory store.Registry for controller and provider
// tests.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*store.RegisteredInstance
	WantErr   error
}

func NewRegistry() *Registry {
	return &Registry{instances: map[string]*store.RegisteredInstance{}}
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = map[string]*store.RegisteredInstance{}
	r.WantErr = nil
}

func (r *Registry) List(context.Context) ([]*store.RegisteredInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.WantErr != nil {
		return nil, r.WantErr
	}
	return lo.Map(lo.Values(r.instances), func(i *store.RegisteredInstance, _ int) *store.RegisteredInstance {
		cp := *i
		return &cp
	}), nil
}

func (r *Registry) ListTarget(_ context.Context, target store.Target) ([]*store.RegisteredInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.WantErr != nil {
		return nil, r.WantErr
	}
	var out []*store.RegisteredInstance
	for _, instance := range r.instances {
		if instance.Target() == target {
			cp := *instance
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *Registry) Register(_ context.Context, instance *store.RegisteredInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey(instance)
	if _, exists := r.instances[key]; exists {
		return fmt.Errorf("instance %s already registered", key)
	}
	cp := *instance
	r.instances[key] = &cp
	return nil
}

func (r *Registry) Put(_ context.Context, instance *store.RegisteredInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.WantErr != nil {
		return r.WantErr
	}
	cp := *instance
	r.instances[registryKey(instance)] = &cp
	return nil
}

func (r *Registry) SetState(_ context.Context, instance *store.RegisteredInstance, state scheduling.InstanceState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.instances[registryKey(instance)]; ok {
		stored.StoredState = state
	}
	return nil
}

func (r *Registry) Deregister(_ context.Context, instance *store.RegisteredInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, registryKey(instance))
	return nil
}

// StoredState returns the persisted state of a resource, for assertions.
func (r *Registry) StoredState(instance *store.RegisteredInstance) (scheduling.InstanceState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.instances[registryKey(instance)]
	if !ok {
		return "", false
	}
	return stored.StoredState, true
}

// Stored returns the persisted record of a resource, for assertions.
func (r *Registry) Stored(instance *store.RegisteredInstance) (*store.RegisteredInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.instances[registryKey(instance)]
	if !ok {
		return nil, false
	}
	cp := *stored
	return &cp, true
}

func registryKey(i *store.RegisteredInstance) string {
	return i.Account + "#" + i.SortKey()
}

// MaintenanceWindowStore is an in-memory store.MaintenanceWindowStore.
type MaintenanceWindowStore struct {
	mu      sync.Mutex
	windows map[string]*store.MaintenanceWindow
	WantErr error
}

func NewMaintenanceWindowStore() *MaintenanceWindowStore {
	return &MaintenanceWindowStore{windows: map[string]*store.MaintenanceWindow{}}
}

func (s *MaintenanceWindowStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = map[string]*store.MaintenanceWindow{}
	s.WantErr = nil
}

func (s *MaintenanceWindowStore) List(_ context.Context, account, region string) ([]*store.MaintenanceWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WantErr != nil {
		return nil, s.WantErr
	}
	var out []*store.MaintenanceWindow
	for _, window := range s.windows {
		if window.Account == account && window.Region == region {
			cp := *window
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MaintenanceWindowStore) Put(_ context.Context, window *store.MaintenanceWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WantErr != nil {
		return s.WantErr
	}
	cp := *window
	s.windows[window.AccountRegion()+"#"+window.NameID()] = &cp
	return nil
}

func (s *MaintenanceWindowStore) Delete(_ context.Context, window *store.MaintenanceWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, window.AccountRegion()+"#"+window.NameID())
	return nil
}

// Mirrored returns the mirrored window by NameID, for assertions.
func (s *MaintenanceWindowStore) Mirrored(window *store.MaintenanceWindow) (*store.MaintenanceWindow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.windows[window.AccountRegion()+"#"+window.NameID()]
	if !ok {
		return nil, false
	}
	cp := *stored
	return &cp, true
}

// Len returns the number of mirrored windows.
func (s *MaintenanceWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
