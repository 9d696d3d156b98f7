// Package config loads, defaults, and validates Turnstile configuration.
//
// Configuration comes from a YAML file, with environment variable
// overrides of the form TURNSTILE_SECTION_FIELD taking precedence.
// Validation is strict: a malformed tier policy is fatal at load time so
// it can never surface during an admission check.
package config
