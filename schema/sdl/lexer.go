package sdl

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// sdlLexer defines the token types for the table definition language.
var sdlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "BlockAttr", Pattern: `@@`},
	{Name: "FieldAttr", Pattern: `@`},

	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Equal", Pattern: `=`},
	{Name: "Question", Pattern: `\?`},

	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},

	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},

	{Name: "Comment", Pattern: `//[^\n]*`},

	{Name: "Newline", Pattern: `[\r\n]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})
