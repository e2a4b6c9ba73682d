// Package batch orchestrates multi-document ingestion jobs.
//
// Jobs share one bounded worker pool, report progress through a durable
// job store, support cooperative cancellation between files, and
// materialize a final report exactly once when they reach a terminal
// state. A failed file never fails the batch on its own; the terminal
// status reflects the mix of per-file outcomes.
package batch
