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

package providers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ErrorTagKey is the tag operators watch for resource-scoped scheduling
// problems.
const ErrorTagKey = "scheduler:error"

// TagTemplate is one tag written to a resource after a successful start or
// stop. Values may contain {year} {month} {day} {hour} {minute} {timezone}
// macros resolved at action time in the schedule's timezone.
type TagTemplate struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// ParseTagTemplates parses a JSON list of tag templates. An empty input
// yields no tags.
func ParseTagTemplates(s string) ([]TagTemplate, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var templates []TagTemplate
	if err := json.Unmarshal([]byte(s), &templates); err != nil {
		return nil, fmt.Errorf("parsing tag templates %q, %w", s, err)
	}
	for _, t := range templates {
		if t.Key == "" {
			return nil, fmt.Errorf("tag template with empty key in %q", s)
		}
	}
	return templates, nil
}

// Resolve substitutes the time macros against the local instant.
func (t TagTemplate) Resolve(lt time.Time) (string, string) {
	replacer := strings.NewReplacer(
		"{year}", fmt.Sprintf("%04d", lt.Year()),
		"{month}", fmt.Sprintf("%02d", int(lt.Month())),
		"{day}", fmt.Sprintf("%02d", lt.Day()),
		"{hour}", fmt.Sprintf("%02d", lt.Hour()),
		"{minute}", fmt.Sprintf("%02d", lt.Minute()),
		"{timezone}", lt.Location().String(),
	)
	return t.Key, replacer.Replace(t.Value)
}

// ErrorTagValue renders the operator-facing error tag value: error code
// plus a timestamped human-readable message.
func ErrorTagValue(code, message string, dt time.Time) string {
	return fmt.Sprintf("%s: %s (%s)", code, message, dt.Format(time.RFC3339))
}
