// Package main hosts the iptv CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, wires the aggregation
// engine from internal packages and renders human-readable summaries. Keep
// this package lean: behaviour belongs in internal/ and is surfaced here
// through commands and flags.
package main
