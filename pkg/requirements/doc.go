// Package requirements maps a complaint classification to the evidence it
// must collect. The table is static and versioned by TableVersion.
package requirements
