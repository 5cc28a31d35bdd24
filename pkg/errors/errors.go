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

package errors

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/samber/lo"
)

const (
	AccessDeniedCode          = "AccessDenied"
	AccessDeniedExceptionCode = "AccessDeniedException"
)

var (
	// This is not an exhaustive list, add to it as needed
	notFoundErrorCodes = []string{
		"InvalidInstanceID.NotFound",
		"DBInstanceNotFound",
		"DBClusterNotFoundFault",
		"ResourceNotFoundException",
		"ValidationError",
	}
	// unfulfillableCapacityErrorCodes signify that capacity is temporarily unable to be launched
	unfulfillableCapacityErrorCodes = []string{
		"InsufficientInstanceCapacity",
		"InsufficientHostCapacity",
		"InstanceLimitExceeded",
		"VcpuLimitExceeded",
		"UnfulfillableCapacity",
		"Unsupported",
	}
	throttlingErrorCodes = []string{
		"Throttling",
		"ThrottlingException",
		"RequestLimitExceeded",
		"TooManyRequestsException",
		"ProvisionedThroughputExceededException",
	}
	conditionalCheckErrorCodes = []string{
		"ConditionalCheckFailedException",
	}
	hibernationErrorCodes = []string{
		"UnsupportedHibernationConfiguration",
		"UnsupportedOperation",
	}
)

// IsNotFound returns true if the err is an AWS error (even if it's
// wrapped) and is known to mean "not found" (as opposed to a more
// serious or unexpected error)
func IsNotFound(err error) bool {
	return hasCode(err, notFoundErrorCodes)
}

// IsAccessDenied returns true if the error is an AWS error (even if it's
// wrapped) and is known to mean "access denied"
func IsAccessDenied(err error) bool {
	return hasCode(err, []string{AccessDeniedCode, AccessDeniedExceptionCode})
}

// IsUnfulfillableCapacity returns true if the error means capacity for the
// requested instance type is temporarily unavailable. These are the errors
// that trigger the start-type fallback list.
func IsUnfulfillableCapacity(err error) bool {
	return hasCode(err, unfulfillableCapacityErrorCodes)
}

// IsThrottled returns true if the error is a provider rate limit response.
func IsThrottled(err error) bool {
	return hasCode(err, throttlingErrorCodes)
}

// IsHibernationUnsupported returns true if a hibernating stop was rejected
// because the instance is not configured for hibernation. The stop is
// retried without hibernation.
func IsHibernationUnsupported(err error) bool {
	return hasCode(err, hibernationErrorCodes)
}

// IsConditionalCheckFailed returns true if a conditional store write lost
// the race against a concurrent writer.
func IsConditionalCheckFailed(err error) bool {
	return hasCode(err, conditionalCheckErrorCodes)
}

func hasCode(err error, codes []string) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return lo.Contains(codes, apiErr.ErrorCode())
	}
	return false
}

// UnknownScheduleError reports a resource tagged with a schedule name that
// does not exist in the schedule store.
type UnknownScheduleError struct {
	ScheduleName string
}

func (e *UnknownScheduleError) Error() string {
	return fmt.Sprintf("schedule %q not found", e.ScheduleName)
}

func IsUnknownSchedule(err error) bool {
	var usErr *UnknownScheduleError
	return errors.As(err, &usErr)
}

// UnknownPeriodError reports a schedule referencing a period name that does
// not exist in the period store.
type UnknownPeriodError struct {
	ScheduleName string
	PeriodName   string
}

func (e *UnknownPeriodError) Error() string {
	return fmt.Sprintf("schedule %q references unknown period %q", e.ScheduleName, e.PeriodName)
}

func IsUnknownPeriod(err error) bool {
	var upErr *UnknownPeriodError
	return errors.As(err, &upErr)
}

// UnsupportedResourceError reports a registered resource whose engine or
// shape the service adapter cannot schedule. It is surfaced once at
// registration and the resource is skipped forever after.
type UnsupportedResourceError struct {
	ResourceID string
	Reason     string
}

func (e *UnsupportedResourceError) Error() string {
	return fmt.Sprintf("resource %q is not schedulable: %s", e.ResourceID, e.Reason)
}

func IsUnsupportedResource(err error) bool {
	var urErr *UnsupportedResourceError
	return errors.As(err, &urErr)
}

// InvalidPeriodError is the schema-level error kind for a period definition
// that fails validation.
type InvalidPeriodError struct {
	PeriodName string
	Err        error
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period definition %q: %s", e.PeriodName, e.Err)
}

func (e *InvalidPeriodError) Unwrap() error { return e.Err }

func IsInvalidPeriod(err error) bool {
	var ipErr *InvalidPeriodError
	return errors.As(err, &ipErr)
}

// InvalidScheduleError is the schema-level error kind for a schedule
// definition that fails validation.
type InvalidScheduleError struct {
	ScheduleName string
	Err          error
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule definition %q: %s", e.ScheduleName, e.Err)
}

func (e *InvalidScheduleError) Unwrap() error { return e.Err }

func IsInvalidSchedule(err error) bool {
	var isErr *InvalidScheduleError
	return errors.As(err, &isErr)
}
