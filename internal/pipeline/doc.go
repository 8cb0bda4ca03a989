// Package pipeline runs one aggregation pass: fetch and parse every source
// concurrently, then merge the results into the registry from a single
// goroutine in source declaration order and freeze it for ranking.
package pipeline
