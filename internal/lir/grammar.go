// SPDX-License-Identifier: Apache-2.0

package lir

import "github.com/alecthomas/participle/v2/lexer"

// Lexer tokenizes the textual linear-IR listing format used by test
// fixtures and cmd/kefirc (§6.1 is a binary-ish handshake format; this
// listing syntax is purely a debugging/testing convenience, grounded on
// the teacher's grammar/lexer.go stateful-lexer idiom).
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `;[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_.]*`, nil},
		{"Float", `[0-9]+\.[0-9]+`, nil},
		{"Int", `-?[0-9]+`, nil},
		{"At", `@`, nil},
		{"Colon", `:`, nil},
		{"EOL", `\n+`, nil},
		{"Whitespace", `[ \t\r]+`, nil},
	},
})

// listing is the participle grammar for one function's flat linear-IR
// instruction stream: an optional sequence of label declarations
// ("label NAME:") interleaved with instruction lines.
type listing struct {
	Lines []*line `EOL* @@*`
}

type line struct {
	Label *labelDecl `( @@`
	Instr *instrLine `| @@ ) EOL*`
}

type labelDecl struct {
	Name string `"label" @Ident Colon`
}

type instrLine struct {
	Op   string  `@Ident`
	Args []*arg  `@@*`
}

type arg struct {
	At    bool     `@At?`
	Int   *int64   `( @Int`
	Float *float64 `| @Float`
	Ident *string  `| @Ident )`
}
