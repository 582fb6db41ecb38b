// Package preflight provides readiness checks for the filesystem paths and
// external services a run depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before touching any input. A failed check
//     aborts the run before frames are extracted.
//   - The CLI "visiogen status" command prints every result, including the
//     binary checks from CheckSystemDeps.
//
// Service checks are gated by the configured transcription provider.
package preflight
