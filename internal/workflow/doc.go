// Package workflow orchestrates the episode pipeline: discovery, download,
// optional language detection, transcription, optional analysis, and output
// generation. Steps run strictly forward; a failure aborts the invocation
// and the next run starts from the top.
//
// Two failure classes get special treatment. Analysis failures are downgraded
// to a warning and the episode still produces a transcription-only document.
// The downloaded media file is removed exactly once on every exit path,
// normal or not, through a single deferred cleanup acquired on download
// success.
//
// Batch mode processes subscription feeds with a bounded download pool and a
// strictly serialized transcription lane, guarded by a process-level file
// lock and a seen-episode cache.
package workflow
