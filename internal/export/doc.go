// Package export renders the frozen registry into the published playlist
// files: live.m3u, live.txt, channel.json and the optional source.json
// diagnostics dump.
//
// Writers take a View built after the registry is frozen. Files are written
// atomically while an advisory lock on the dist directory is held, so a
// second run cannot interleave its output.
package export
