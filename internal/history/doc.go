// Package history persists a record of every aggregation run in SQLite.
//
// Each run stores its timing, merge counters and export outcome; each
// source of the run stores its fetch result. The CLI reads the table to show
// recent runs and which sources keep failing.
package history
