// Package pipeline turns a project tree into built output.
//
// A build discovers files under the watched paths, classifies them as
// sources, assets or ignored files, reads bower/component packages, and
// plans every configured join. The plan becomes a task graph: one compile
// task per source, one join task per output depending on the compile tasks
// of its inputs, and one copy task per asset. The graph runs on a bounded
// worker pool that stops scheduling new work after the first failure and
// reports the root cause.
//
// Joined outputs are concatenated in the order produced by sorter.Grouped,
// get an index source map when any input carries one, are optionally
// optimized, and are written atomically under the public path. Assets are
// copied through a copier.CopyScheduler.
package pipeline
