// Package erb extracts embedded Ruby from ERB templates into a projection
// that keeps every line and column of the template, and splices corrected
// Ruby back into the template.
//
// A projection comes in two flavours:
//
//   - Direct: every byte outside an ERB tag is blanked (newlines are kept),
//     so diagnostics reported against the projection point at the same line
//     and column in the template.
//   - Marked: every tag's content is additionally framed by marker lines
//     derived from a Marker. Line fidelity is traded for the ability to find
//     each tag's content again after an analyzer has rewritten the code.
//
// Everything in this package is pure and safe for concurrent use.
package erb
