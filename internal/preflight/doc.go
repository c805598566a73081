// Package preflight runs the checks behind `amandocs doctor`.
//
// System checks cover disk space, write permissions, file descriptor
// limits and available memory. Project checks cover the corpus, the index
// artifact, the embedding cache and whether the configured model loads.
// Only failures of required checks are critical; semantic problems are
// warnings because search degrades to keywords.
//
//	checker := preflight.New(target, preflight.WithModel(newModel))
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
