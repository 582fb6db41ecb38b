// Package stageexec runs one pipeline stage with uniform logging, a stage
// name in context, and an optional per-stage deadline.
package stageexec
