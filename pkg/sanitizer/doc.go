// Package sanitizer normalizes free-text input before it is validated and stored.
//
// Every function is idempotent and returns an empty string for input it cannot
// make sense of, leaving the decision to reject to the validator.
package sanitizer
