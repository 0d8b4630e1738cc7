// Package expect decides whether captured subject output satisfies the
// expectations declared by a test case.
//
// # Expectation Kinds
//
// An expectation is one of two variants, fixed when the suite is loaded:
//
//   - Literal: the captured value must be deeply equal to the declared value.
//     Strings compare byte-for-byte; structured values compare as canonical
//     JSON (RFC 8785), so sequences are order-sensitive and mappings are not.
//   - Presence: a boolean in the suite file. true asserts the captured value
//     is "truthy", false asserts it is not.
//
// Truthiness follows process conventions for return codes: an integer is
// truthy iff it is zero. Strings, sequences and mappings are truthy iff
// non-empty, and null is never truthy.
//
// # Stdout Decoding
//
// The shape of the stdout expectation fixes how captured stdout is read.
// A structured literal (sequence, mapping, number or null) makes stdout
// Structured: the raw text is parsed as JSON and a parse failure yields
// null. Anything else keeps stdout as RawText.
package expect
