// Package watcher reports changes to a documentation corpus.
//
// A Watcher follows every directory under the corpus root with fsnotify,
// drops paths the corpus loader would not read, and coalesces bursts of
// editor and git activity into batches. Run hands each batch to a callback,
// typically an index rebuild.
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go func() { _ = w.Start(ctx, root) }()
//	return watcher.Run(ctx, w, rebuild)
package watcher
