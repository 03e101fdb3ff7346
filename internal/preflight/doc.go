// Package preflight provides readiness checks for the external tools,
// services and filesystem paths that subforge depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before transcribing or rewriting, so a
//     missing binary or an unwritable directory fails before any LLM spend.
//   - The CLI "subforge check" command renders every result, including the
//     optional ones, as a health table.
//
// Each check is gated by its config toggle. Disabled features are skipped.
package preflight
