// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent - applying them twice produces the same
// result - and handle empty input by returning the empty string rather than
// an error. Normalization collapses internal whitespace runs to a single
// space and trims leading/trailing spaces; it never changes letter case,
// since room names and booking titles are display text.
package sanitizer
