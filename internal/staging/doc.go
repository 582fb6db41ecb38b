// Package staging owns the scratch workspace a run writes its intermediate
// artifacts into.
//
// A Workspace is guarded by an exclusive file lock so two runs never share
// the fixed frame and audio paths. Release removes every artifact before
// dropping the lock. CleanStale reclaims directories left behind by runs
// that were killed before they could clean up.
package staging
