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
)

// Render produces the canonical token list for an expression such that
// ParseField(f, Render(e)) reproduces e. Numeric forms are canonical;
// names are accepted on input only.
func Render(e Expression) []string {
	switch expr := e.(type) {
	case All:
		return []string{"*"}
	case SingleValueNumeric:
		return []string{strconv.Itoa(expr.Value)}
	case SingleValueLast:
		return []string{"L"}
	case Range:
		end := "L"
		if expr.End != nil {
			end = strconv.Itoa(*expr.End)
		}
		token := fmt.Sprintf("%d-%s", expr.Start, end)
		if expr.Interval != 1 {
			token = fmt.Sprintf("%s/%d", token, expr.Interval)
		}
		return []string{token}
	case Union:
		var out []string
		for _, m := range expr.Members {
			out = append(out, Render(m)...)
		}
		return out
	case NearestWeekday:
		return []string{fmt.Sprintf("%dW", expr.Day)}
	case NthWeekday:
		return []string{fmt.Sprintf("%d#%d", expr.Weekday, expr.N)}
	case LastWeekday:
		return []string{fmt.Sprintf("%dL", expr.Weekday)}
	}
	return nil
}
