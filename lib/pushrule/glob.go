// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pushrule

import (
	"regexp"
	"strings"
)

// compileGlob turns a push rule glob into an anchored regular
// expression. '*' matches any run of characters including none, '?'
// matches exactly one character, and everything else is literal.
// Matching is case-insensitive and wildcards match newlines.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var expression strings.Builder
	expression.WriteString(`(?is)\A`)

	literalStart := 0
	flush := func(end int) {
		if end > literalStart {
			expression.WriteString(regexp.QuoteMeta(pattern[literalStart:end]))
		}
	}
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*':
			flush(i)
			expression.WriteString(`.*`)
			literalStart = i + 1
		case '?':
			flush(i)
			expression.WriteString(`.`)
			literalStart = i + 1
		}
	}
	flush(len(pattern))

	expression.WriteString(`\z`)
	return regexp.Compile(expression.String())
}

// MatchGlob reports whether value matches pattern under push rule glob
// semantics. It compiles the pattern on every call; use [NewEventMatch]
// for patterns evaluated repeatedly.
func MatchGlob(pattern, value string) bool {
	compiled, err := compileGlob(pattern)
	if err != nil {
		return false
	}
	return compiled.MatchString(value)
}
