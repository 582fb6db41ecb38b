// Package fileutil holds the small file helpers the pipeline shares: streamed
// and verified copies, content hashing for cache keys, and a rename that
// survives crossing filesystems.
package fileutil
