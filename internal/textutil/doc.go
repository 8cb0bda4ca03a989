// Package textutil provides filename sanitization for exported artifacts
// such as channel logo names.
package textutil
