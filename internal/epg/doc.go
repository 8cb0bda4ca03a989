// Package epg trims an XMLTV program guide down to the channels of the
// catalog and renames its channels to the catalog's canonical names.
package epg
