package sdl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// file is the raw parse tree matching the grammar.
type file struct {
	Pos     lexer.Position
	Entries []*entry `parser:"@@*"`
}

type entry struct {
	Pos        lexer.Position
	Datasource *datasourceBlock `parser:"  @@"`
	Table      *tableBlock      `parser:"| @@"`
	Enum       *enumBlock       `parser:"| @@"`
}

type datasourceBlock struct {
	Pos   lexer.Position
	Name  string      `parser:"\"datasource\" @Ident"`
	Props []*property `parser:"\"{\" @@* \"}\""`
}

type property struct {
	Pos   lexer.Position
	Key   string     `parser:"@Ident \"=\""`
	Value *propValue `parser:"@@"`
}

type propValue struct {
	Str *string `parser:"  @String"`
	Env *string `parser:"| \"env\" \"(\" @String \")\""`
}

type tableBlock struct {
	Pos   lexer.Position
	Name  string       `parser:"\"table\" @Ident"`
	Items []*tableItem `parser:"\"{\" @@* \"}\""`
}

type tableItem struct {
	Pos       lexer.Position
	BlockAttr *blockAttr `parser:"  @@"`
	Column    *columnDef `parser:"| @@"`
}

type columnDef struct {
	Pos      lexer.Position
	Name     string       `parser:"@Ident"`
	Type     string       `parser:"@Ident"`
	List     bool         `parser:"@(LBracket RBracket)?"`
	Optional bool         `parser:"@Question?"`
	Attrs    []*fieldAttr `parser:"@@*"`
}

type fieldAttr struct {
	Pos  lexer.Position
	Name string     `parser:"FieldAttr @Ident"`
	Sub  string     `parser:"(\".\" @Ident)?"`
	Args []*attrArg `parser:"(\"(\" (@@ (\",\" @@)*)? \")\")?"`
}

type blockAttr struct {
	Pos  lexer.Position
	Name string     `parser:"BlockAttr @Ident"`
	Args []*attrArg `parser:"(\"(\" (@@ (\",\" @@)*)? \")\")?"`
}

type attrArg struct {
	Pos   lexer.Position
	Name  string    `parser:"(@Ident \":\")?"`
	Value *argValue `parser:"@@"`
}

type argValue struct {
	Pos    lexer.Position
	Str    *string    `parser:"  @String"`
	Number *int       `parser:"| @Number"`
	List   []string   `parser:"| \"[\" @Ident (\",\" @Ident)* \"]\""`
	Ref    *columnRef `parser:"| @@"`
	Func   *funcCall  `parser:"| @@"`
	Ident  *string    `parser:"| @Ident"`
}

// columnRef is a table with a column list, as in references: User([id]).
type columnRef struct {
	Pos     lexer.Position
	Table   string   `parser:"@Ident \"(\" \"[\""`
	Columns []string `parser:"@Ident (\",\" @Ident)* \"]\" \")\""`
}

type funcCall struct {
	Pos  lexer.Position
	Name string  `parser:"@Ident \"(\""`
	Arg  *string `parser:"@String? \")\""`
}

type enumBlock struct {
	Pos    lexer.Position
	Name   string   `parser:"\"enum\" @Ident"`
	Values []string `parser:"\"{\" @Ident* \"}\""`
}

var parser = participle.MustBuild[file](
	participle.Lexer(sdlLexer),
	participle.Elide("Whitespace", "Newline", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(10),
)
