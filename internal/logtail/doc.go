// Package logtail reads the tail of threadline's log file for the logs
// view.
//
// Read keeps a ring buffer of the last N lines so large files are scanned
// once without being held in memory. A missing file yields no lines.
//
// The logger writes one JSON object per line. Parse turns a line into an
// Entry (time, level, message and the remaining attributes sorted by key);
// lines that are not JSON, such as a panic trace, are kept verbatim in
// Raw. Format renders an entry as plain text and leaves colouring to the
// UI.
package logtail
