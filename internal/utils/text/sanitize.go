// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-02
// Last Modified: 2026-10-19

// Package text converts Tuleap field bodies into GitHub flavoured markdown.
package text

import (
	"html"
	"regexp"
	"strings"
)

// hardBreak is a markdown line break that survives paragraph reflow.
const hardBreak = "  \n"

// lineBreaks folds every line-break spelling Tuleap emits into "\n".
// Two-character escapes come from bodies that were stored already escaped.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	`\r\n`, "\n",
	`\n`, "\n",
	`\t`, "\t",
)

var quotes = strings.NewReplacer(
	`\"`, `"`,
	`\'`, `'`,
)

// escapedMarkup matches control characters the source already escaped. The
// source backslashes are dropped so each character carries exactly one.
var escapedMarkup = regexp.MustCompile(`\\+([#*_~^])`)

var markup = strings.NewReplacer(
	"#", `\#`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"^", `\^`,
)

// Sanitize normalizes line breaks, un-escapes quotes and HTML entities and
// then escapes the markdown control characters # * _ ~ ^.
//
// The result is not idempotent: call it exactly once per field.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}

	s = lineBreaks.Replace(s)
	s = strings.ReplaceAll(s, "\n", hardBreak)

	// Un-escaping runs before markup escaping so that characters made
	// literal here are escaped exactly once below.
	s = quotes.Replace(s)
	s = html.UnescapeString(s)
	s = escapedMarkup.ReplaceAllString(s, "$1")

	return markup.Replace(s)
}

// EscapeMarkup escapes only the markdown control characters. It is used for
// text that never went through Tuleap's encoding, such as file names.
func EscapeMarkup(s string) string {
	return markup.Replace(s)
}
