/*
Package qref provides a structured representation of the references that
appear inside template tokens, such as `{{ q1.answer }}` or
`{{ agent.persona }}`.

A reference is a dot-separated sequence of segments, each optionally
indexed: `q1.answer`, `scenario.city`, `q3.answer[0]`. The first segment is
the root; for question references it is the question name.
*/
package qref
