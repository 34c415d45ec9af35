// Package preflight runs environment checks before serving: the snapshot
// directory and manifest, a full snapshot load, the query embedder, and the
// log directory and file descriptor limits.
//
// Required checks that fail make `leedrag doctor` exit non-zero. The others
// are reported as warnings because the server can still answer, degraded.
package preflight
