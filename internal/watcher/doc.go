// Package watcher reports changes to the files of a snapshot directory.
//
// fsnotify is used when available, with polling as a fallback for network
// mounts and container volumes. Events are debounced so that an offline
// build rewriting several files produces one batch.
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx, "/var/lib/leedrag/snapshot")
//
//	for batch := range w.Events() {
//	    // reload
//	}
package watcher
