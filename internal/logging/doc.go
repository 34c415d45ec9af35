// Package logging configures structured JSON logging for leedrag.
//
// Logs go to a size-rotated file under ~/.leedrag/logs/ and, outside of the
// stdio server, optionally to stderr as well. The Viewer reads those files
// back for the `leedrag logs` command.
package logging
