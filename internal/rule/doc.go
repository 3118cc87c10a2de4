// Package rule implements survey navigation: conditional transitions bound
// to questions and the collection that resolves the next question from a
// set of answers.
//
// Every question carries two independent phases of rules. Before-rules
// (skip rules) are evaluated before a question is presented; if any is true
// the question is bypassed. After-rules (jump rules) are evaluated once the
// question is answered and decide where to go next. Each question has an
// implicit default after-rule with priority -1 that advances by one, and
// every rule added by a user outranks the rules added before it.
package rule
