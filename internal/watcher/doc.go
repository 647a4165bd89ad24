// Package watcher drives the Indexer from live filesystem changes.
//
//	w := watcher.New(projectRoot, filter, idx, logger)
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// Events are debounced per path (DebounceWindow) before being enqueued onto
// a bounded channel (QueueCapacity) drained by a single worker, so bursts of
// writes to one file collapse to a single index_file call.
package watcher
