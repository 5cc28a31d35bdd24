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
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

var (
	monthNames   = []string{"january", "february", "march", "april", "may", "june", "july", "august", "september", "october", "november", "december"}
	weekdayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

// ParseField parses the set of recurrence tokens for one field into a
// single validated expression. An absent field (no tokens) is the
// wildcard. Each token is parsed independently; more than one becomes a
// Union. Tokens may themselves be comma-separated lists.
func ParseField(f Field, tokens []string) (Expression, error) {
	var split []string
	for _, t := range tokens {
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				split = append(split, s)
			}
		}
	}
	if len(split) == 0 {
		return All{}, nil
	}
	members := make([]Expression, 0, len(split))
	for _, token := range split {
		expr, err := parseToken(f, token)
		if err != nil {
			return nil, err
		}
		if err := expr.Validate(f); err != nil {
			return nil, fmt.Errorf("token %q: %w", token, err)
		}
		members = append(members, expr)
	}
	if len(members) == 1 {
		return members[0], nil
	}
	return Union{Members: members}, nil
}

// parseToken tries each alternative of the token grammar in a fixed order
// and reports the last error if none matches.
func parseToken(f Field, token string) (Expression, error) {
	alternatives := []func(Field, string) (Expression, error){
		parseWildcard,
		parseLast,
		parseStep,
		parseNthWeekday,
		parseLastWeekday,
		parseNearestWeekday,
		parseRange,
		parseSingleValue,
	}
	var lastErr error
	for _, parse := range alternatives {
		expr, err := parse(f, token)
		if err == nil {
			return expr, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("unknown %s token %q: %w", f, token, lastErr)
}

func parseWildcard(_ Field, token string) (Expression, error) {
	if token == "*" || token == "?" {
		return All{}, nil
	}
	return nil, fmt.Errorf("%q is not a wildcard", token)
}

func parseLast(_ Field, token string) (Expression, error) {
	if strings.EqualFold(token, "L") {
		return SingleValueLast{}, nil
	}
	return nil, fmt.Errorf("%q is not the last-value sentinel", token)
}

// parseStep handles `expr/n`. When expr is a single value the range runs
// from that value to the end of the domain.
func parseStep(f Field, token string) (Expression, error) {
	base, intervalStr, found := strings.Cut(token, "/")
	if !found {
		return nil, fmt.Errorf("%q has no interval", token)
	}
	interval, err := strconv.Atoi(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("interval %q is not numeric", intervalStr)
	}
	if interval < 1 {
		return nil, fmt.Errorf("interval must be >= 1, got %d", interval)
	}
	if strings.Contains(base, "-") {
		expr, err := parseRange(f, base)
		if err != nil {
			return nil, err
		}
		r := expr.(Range)
		r.Interval = interval
		return r, nil
	}
	start, err := parseValue(f, base)
	if err != nil {
		return nil, err
	}
	return Range{Start: start, End: nil, Interval: interval}, nil
}

func parseNthWeekday(f Field, token string) (Expression, error) {
	day, nStr, found := strings.Cut(token, "#")
	if !found {
		return nil, fmt.Errorf("%q is not an nth-weekday token", token)
	}
	wd, err := parseValue(f, day)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(nStr)
	if err != nil {
		return nil, fmt.Errorf("nth-weekday ordinal %q is not numeric", nStr)
	}
	return NthWeekday{Weekday: wd, N: n}, nil
}

func parseLastWeekday(f Field, token string) (Expression, error) {
	if len(token) < 2 || !strings.HasSuffix(token, "L") {
		return nil, fmt.Errorf("%q is not a last-weekday token", token)
	}
	wd, err := parseValue(f, strings.TrimSuffix(token, "L"))
	if err != nil {
		return nil, err
	}
	return LastWeekday{Weekday: wd}, nil
}

func parseNearestWeekday(f Field, token string) (Expression, error) {
	if len(token) < 2 || !strings.HasSuffix(token, "W") {
		return nil, fmt.Errorf("%q is not a nearest-weekday token", token)
	}
	day, err := strconv.Atoi(strings.TrimSuffix(token, "W"))
	if err != nil {
		return nil, fmt.Errorf("nearest-weekday day in %q is not numeric", token)
	}
	return NearestWeekday{Day: day}, nil
}

// parseRange handles `a-b`. The start may not be the last-value sentinel;
// the end may be, meaning end-of-domain.
func parseRange(f Field, token string) (Expression, error) {
	startStr, endStr, found := strings.Cut(token, "-")
	if !found {
		return nil, fmt.Errorf("%q is not a range", token)
	}
	if strings.EqualFold(startStr, "L") {
		return nil, fmt.Errorf("range in %q cannot start at the last value", token)
	}
	start, err := parseValue(f, startStr)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(endStr, "L") {
		return Range{Start: start, End: nil, Interval: 1}, nil
	}
	end, err := parseValue(f, endStr)
	if err != nil {
		return nil, err
	}
	return Range{Start: start, End: lo.ToPtr(end), Interval: 1}, nil
}

func parseSingleValue(f Field, token string) (Expression, error) {
	v, err := parseValue(f, token)
	if err != nil {
		return nil, err
	}
	return SingleValueNumeric{Value: v}, nil
}

// parseValue resolves a numeric literal or, for months and weekdays, an
// English full or 3-letter name (case-insensitive).
func parseValue(f Field, s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	var names []string
	var offset int
	switch f {
	case FieldMonths:
		names, offset = monthNames, 1 // Jan=1
	case FieldWeekdays:
		names, offset = weekdayNames, 0 // Mon=0
	default:
		return 0, fmt.Errorf("%q is not numeric", s)
	}
	lowered := strings.ToLower(s)
	for i, name := range names {
		if lowered == name || (len(lowered) == 3 && strings.HasPrefix(name, lowered)) {
			return i + offset, nil
		}
	}
	return 0, fmt.Errorf("%q is not a valid %s name", s, f)
}
