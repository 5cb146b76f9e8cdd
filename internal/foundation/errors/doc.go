// Package errors provides the classified error primitives used across docpipe.
//
// Every failure the pipeline reports carries a category (plugin, parse, link,
// resource, abort, ...), a severity and a retry strategy, plus a free-form
// context map used to attribute blame (file, plugin, phase). The fluent
// builder keeps construction uniform:
//
//	err := errors.PluginExecutionError("markdown", errors.PhaseTransform, cause).
//		WithContext("file", "notes/a.md").
//		Build()
//
// Recovery decisions (internal/recovery) and CLI exit codes (CLIErrorAdapter)
// are derived from the category alone.
package errors
