// Package window implements an exact sliding-log throttle.
//
// Unlike fixed-bucket counters, the sliding log has no boundary-doubling
// artifact at window edges: every stored timestamp is compared against the
// exact window start. Cost per check is O(k) where k is the number of
// timestamps currently in the window, and k never exceeds the limit.
//
// The log is per-process state and is intended for single-instance
// deployments and tests; multi-instance deployments should rely on the
// distributed counter instead.
package window
