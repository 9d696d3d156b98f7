// Turnstile is an admission-control layer for multi-tenant services.
//
// It decides, per request, whether a subject may proceed by combining a
// tier policy table, a fleet-wide fixed-window counter, a load-adaptive
// scaler, a daily quota, and a local sliding-window throttle.
//
// Usage:
//
//	# Start the guard server with default configuration
//	turnstile run
//
//	# Start with a custom configuration file
//	turnstile run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	turnstile validate --config /path/to/config.yaml
//
//	# Show version information
//	turnstile version
package main

func main() {
	Execute()
}
