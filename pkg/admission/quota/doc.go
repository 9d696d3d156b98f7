// Package quota tracks per-subject daily request counts.
//
// Quota periods are UTC calendar days: the counter resets exactly at UTC
// midnight with no partial-day prorating. State can be snapshotted to a
// storage backend so counts survive process restarts.
package quota
