// Package admission decides, per request, whether a caller may proceed.
//
// The decision engine composes four independently tunable checks into a
// single allow/deny outcome:
//
//   - a distributed fixed-window counter shared by all instances
//   - a load-adaptive scaling factor applied to the window limit
//   - a per-subject daily quota with UTC-day reset
//   - an exact sliding-log throttle over the short window
//
// Checks run in that order and the first failing check denies the request.
// Denied requests are never charged against any counter. The PREMIUM tier
// bypasses all checks.
//
// Subpackages implement the individual checks; this package owns the tier
// policy table, the Decision type, and the orchestration.
package admission
