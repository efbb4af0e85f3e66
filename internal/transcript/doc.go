// Package transcript records the proof transcript of a circuit call.
//
// A Builder wraps the query interpreter for the duration of one call. Every
// query it runs is appended to the public transcript with its popeq results
// filled from the interpreter's read events, so the transcript can be
// re-executed from the call input alone. Witness outputs are kept apart in
// the private list, which is never part of the public transcript.
package transcript
