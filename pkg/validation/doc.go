// Package validation holds the per-field validators used by the intake
// flows and the validators with side effects: postal code enrichment,
// email OTP and evidence upload.
package validation
