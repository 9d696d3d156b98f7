// Package distributed implements the fleet-wide fixed-window counter.
//
// Fixed windows are used here instead of the exact sliding log because the
// check must complete in a single atomic round trip against the shared
// store; a sliding log would require transferring and mutating an unbounded
// timestamp list remotely. The Redis implementation is canonical for
// multi-instance deployments; the in-memory implementation provides the
// same capability for single-instance topologies and tests.
package distributed
