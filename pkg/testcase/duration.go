// SPDX-License-Identifier: MPL-2.0

package testcase

import "time"

// durationFromSeconds converts a positive fractional-seconds value, as
// carried by the test-case JSON schema, into a time.Duration.
func durationFromSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
