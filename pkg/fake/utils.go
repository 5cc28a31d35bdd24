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
	"fmt"

	"github.com/aws/smithy-go"
)

// APIError is a minimal smithy.APIError for driving the error-code
// classification paths in tests.
type APIError struct {
	Code    string
	Message string
}

func NewAPIError(code string) *APIError {
	return &APIError{Code: code, Message: code}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}

func (e *APIError) ErrorCode() string { return e.Code }

func (e *APIError) ErrorMessage() string { return e.Message }

func (e *APIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }
