// Package load computes a scaling factor from host load.
//
// The factor shrinks the effective window limit as the 1-minute load
// average approaches the logical CPU count. Sampling is abstracted behind
// the Sampler interface so tests can supply deterministic load values.
package load
