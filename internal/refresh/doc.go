// Package refresh is the side-effecting shell around the pure table of
// contents builder.
//
// A Refresher runs one tick at a time: scan the document, build the tree,
// render it and replace the container's content. Start schedules ticks on a
// fixed interval with gocron; a Watcher requests early ticks when the source
// file changes. Ticks never overlap and a failed tick never stops the
// schedule.
package refresh
