// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-02
// Last Modified: 2026-10-19

package text

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "plain text untouched",
			input: "Crash when saving",
			want:  "Crash when saving",
		},
		{
			name:  "real CRLF becomes hard break",
			input: "line one\r\nline two",
			want:  "line one  \nline two",
		},
		{
			name:  "bare CR becomes hard break",
			input: "a\rb",
			want:  "a  \nb",
		},
		{
			name:  "encoded CRLF and LF",
			input: `first\r\nsecond\nthird`,
			want:  "first  \nsecond  \nthird",
		},
		{
			name:  "encoded tab",
			input: `key\tvalue`,
			want:  "key\tvalue",
		},
		{
			name:  "blank line doubles",
			input: "para one\n\npara two",
			want:  "para one  \n  \npara two",
		},
		{
			name:  "encoded quotes",
			input: `he said \"hi\" and it\'s fine`,
			want:  `he said "hi" and it's fine`,
		},
		{
			name:  "html entities",
			input: "it&#039;s &quot;quoted&quot; &amp; a &lt;tag&gt;",
			want:  `it's "quoted" & a <tag>`,
		},
		{
			name:  "markup characters escaped",
			input: "# title *bold* _em_ ~strike~ x^2",
			want:  `\# title \*bold\* \_em\_ \~strike\~ x\^2`,
		},
		{
			name:  "entity decoded before escaping",
			input: "issue &#35;12",
			want:  `issue \#12`,
		},
		{
			name:  "source-escaped control character escaped once",
			input: `a\*b*`,
			want:  `a\*b\*`,
		},
		{
			name:  "backslash run before control character",
			input: `x\\\_y \\#`,
			want:  `x\_y \#`,
		},
		{
			name:  "other backslashes kept",
			input: `C:\dir\bin`,
			want:  `C:\dir\bin`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_EveryControlCharacterEscaped(t *testing.T) {
	input := "a#b*c_d~e^f ## ** __"
	got := Sanitize(input)

	for i := 0; i < len(got); i++ {
		switch got[i] {
		case '#', '*', '_', '~', '^':
			if i == 0 || got[i-1] != '\\' {
				t.Fatalf("unescaped %q at %d in %q", got[i], i, got)
			}
		case '\\':
			if i+1 >= len(got) || !strings.ContainsRune("#*_~^", rune(got[i+1])) {
				t.Fatalf("backslash before non-control character at %d in %q", i, got)
			}
		}
	}

	if want := strings.Count(input, "#") + strings.Count(input, "*") + strings.Count(input, "_") +
		strings.Count(input, "~") + strings.Count(input, "^"); strings.Count(got, `\`) != want {
		t.Errorf("expected %d backslashes, got %d", want, strings.Count(got, `\`))
	}
}

func TestSanitize_NotIdempotent(t *testing.T) {
	once := Sanitize("line\nbreak")
	twice := Sanitize(once)
	if once == twice {
		t.Errorf("expected a second pass to widen the hard break, got %q both times", once)
	}
}

func TestSanitize_SourceBackslashesCannotUnescape(t *testing.T) {
	for _, input := range []string{`\*`, `\\*`, `a\#b`, `&#92;_x_`, `\\\~`} {
		got := Sanitize(input)
		for i := 0; i < len(got); i++ {
			if !strings.ContainsRune("#*_~^", rune(got[i])) {
				continue
			}
			// Exactly one backslash keeps a control character literal.
			n := 0
			for j := i - 1; j >= 0 && got[j] == '\\'; j-- {
				n++
			}
			if n != 1 {
				t.Errorf("Sanitize(%q) = %q: %q at %d preceded by %d backslashes, want 1", input, got, got[i], i, n)
			}
		}
	}
}
