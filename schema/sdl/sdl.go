// Package sdl parses the compact table definition language into the shared
// schema representation. The language describes tables, enums and one
// datasource block; relation semantics beyond foreign keys live elsewhere.
package sdl

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/diagnostics"
	"github.com/schemaforge/schemaforge/schema"
)

// ParseError carries every semantic problem found while converting a parsed
// definition, so one pass reports them all.
type ParseError struct {
	Diagnostics diagnostics.Diagnostics
}

func (e *ParseError) Error() string {
	errs := e.Diagnostics.Errors()
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Message()
	}
	return fmt.Sprintf("definition has %d error(s): %s", len(errs), strings.Join(messages, "; "))
}

// Parse converts a table definition into a schema. Syntax errors surface as
// participle errors; semantic errors are collected into a ParseError.
func Parse(filename, input string) (*schema.Schema, error) {
	raw, err := parser.ParseString(filename, input)
	if err != nil {
		return nil, err
	}
	return convert(raw)
}

// ParseFile reads and parses a definition file.
func ParseFile(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, string(data))
}

func convert(raw *file) (*schema.Schema, error) {
	c := &converter{
		out:       &schema.Schema{},
		diags:     diagnostics.NewDiagnostics(),
		enumNames: map[string]bool{},
	}

	// Enums first so columns can use them as types regardless of order.
	for _, e := range raw.Entries {
		if e.Enum != nil {
			c.enumNames[e.Enum.Name] = true
			c.out.Enums = append(c.out.Enums, schema.Enum{
				Name:   e.Enum.Name,
				Values: e.Enum.Values,
				Span:   spanAt(e.Enum.Pos),
			})
		}
	}

	for _, e := range raw.Entries {
		switch {
		case e.Datasource != nil:
			c.convertDatasource(e.Datasource)
		case e.Table != nil:
			c.convertTable(e.Table)
		}
	}

	if c.diags.HasErrors() {
		return nil, &ParseError{Diagnostics: c.diags}
	}
	return c.out, nil
}

type converter struct {
	out       *schema.Schema
	diags     diagnostics.Diagnostics
	enumNames map[string]bool
}

func (c *converter) errorf(pos lexer.Position, format string, args ...any) {
	c.diags.PushError(diagnostics.NewValidationError(fmt.Sprintf(format, args...), spanAt(pos)))
}

func (c *converter) convertDatasource(block *datasourceBlock) {
	if c.out.Datasource != nil {
		c.errorf(block.Pos, "Only one datasource block is allowed.")
		return
	}

	ds := &schema.Datasource{
		Name:         block.Name,
		RelationMode: connector.RelationModeForeignKeys,
		Span:         spanAt(block.Pos),
	}

	for _, prop := range block.Props {
		value := ""
		switch {
		case prop.Value.Str != nil:
			value = *prop.Value.Str
		case prop.Value.Env != nil:
			value = os.Getenv(*prop.Value.Env)
		}

		switch prop.Key {
		case "provider":
			ds.Provider = value
		case "url":
			ds.URL = value
		case "relationMode":
			switch value {
			case string(connector.RelationModeForeignKeys):
				ds.RelationMode = connector.RelationModeForeignKeys
			case string(connector.RelationModePrisma):
				ds.RelationMode = connector.RelationModePrisma
			default:
				c.errorf(prop.Pos, "Unknown relation mode %q.", value)
			}
		default:
			c.errorf(prop.Pos, "Unknown datasource property %q.", prop.Key)
		}
	}

	c.out.Datasource = ds
}

func (c *converter) convertTable(block *tableBlock) {
	table := schema.Table{Name: block.Name, Span: spanAt(block.Pos)}

	for _, item := range block.Items {
		if item.Column != nil {
			c.convertColumn(&table, item.Column)
		}
	}
	// Block attributes can reference columns, so they convert second.
	for _, item := range block.Items {
		if item.BlockAttr != nil {
			c.convertBlockAttr(&table, item.BlockAttr)
		}
	}

	c.out.Tables = append(c.out.Tables, table)
}

func (c *converter) convertColumn(table *schema.Table, def *columnDef) {
	col := schema.Column{
		Name:     def.Name,
		Nullable: def.Optional,
		List:     def.List,
		Span:     spanAt(def.Pos),
	}

	if c.enumNames[def.Type] {
		col.Type = connector.ScalarTypeEnum
		col.NativeType = &connector.NativeTypeInstance{Name: def.Type}
	} else {
		scalar, err := connector.ParseScalarType(def.Type)
		if err != nil {
			c.errorf(def.Pos, "Unknown type %q for column %q.", def.Type, def.Name)
			return
		}
		col.Type = scalar
	}

	for _, attr := range def.Attrs {
		c.applyFieldAttr(table, &col, attr)
	}

	table.Columns = append(table.Columns, col)
}

func (c *converter) applyFieldAttr(table *schema.Table, col *schema.Column, attr *fieldAttr) {
	switch {
	case attr.Name == "id" && attr.Sub == "":
		if table.PrimaryKey != nil {
			c.errorf(attr.Pos, "Table %q already has a primary key.", table.Name)
			return
		}
		table.PrimaryKey = &schema.PrimaryKey{Columns: []string{col.Name}}
	case attr.Name == "unique" && attr.Sub == "":
		table.Indexes = append(table.Indexes, schema.Index{
			Name:    fmt.Sprintf("%s_%s_key", table.Name, col.Name),
			Columns: []string{col.Name},
			Unique:  true,
			Span:    spanAt(attr.Pos),
		})
	case attr.Name == "autoincrement" && attr.Sub == "":
		col.AutoIncrement = true
	case attr.Name == "default" && attr.Sub == "":
		c.applyDefault(col, attr)
	case attr.Name == "db" && attr.Sub != "":
		col.NativeType = &connector.NativeTypeInstance{
			Name: attr.Sub,
			Args: numberArgs(attr.Args),
		}
	default:
		c.errorf(attr.Pos, "Unknown attribute @%s on column %q.", attrName(attr), col.Name)
	}
}

func (c *converter) applyDefault(col *schema.Column, attr *fieldAttr) {
	if len(attr.Args) != 1 {
		c.errorf(attr.Pos, "@default takes exactly one argument.")
		return
	}

	value := attr.Args[0].Value
	switch {
	case value.Str != nil:
		col.Default = &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: *value.Str}
	case value.Number != nil:
		col.Default = &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: fmt.Sprintf("%d", *value.Number)}
	case value.Ident != nil:
		col.Default = &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: *value.Ident}
	case value.Func != nil:
		switch value.Func.Name {
		case "autoincrement":
			col.AutoIncrement = true
		case "dbgenerated":
			expr := ""
			if value.Func.Arg != nil {
				expr = *value.Func.Arg
			}
			col.Default = &schema.DefaultValue{Kind: schema.DefaultDBGenerated, Value: expr}
		default:
			col.Default = &schema.DefaultValue{Kind: schema.DefaultFunction, Value: value.Func.Name}
		}
	default:
		c.errorf(attr.Pos, "Unsupported @default value for column %q.", col.Name)
	}
}

func (c *converter) convertBlockAttr(table *schema.Table, attr *blockAttr) {
	switch attr.Name {
	case "id":
		c.convertCompoundID(table, attr)
	case "unique":
		c.convertTableIndex(table, attr, true)
	case "index":
		c.convertTableIndex(table, attr, false)
	case "fk":
		c.convertForeignKey(table, attr)
	default:
		c.errorf(attr.Pos, "Unknown attribute @@%s on table %q.", attr.Name, table.Name)
	}
}

func (c *converter) convertCompoundID(table *schema.Table, attr *blockAttr) {
	if table.PrimaryKey != nil {
		c.errorf(attr.Pos, "Table %q already has a primary key.", table.Name)
		return
	}

	columns := listArg(attr.Args)
	if len(columns) == 0 {
		c.errorf(attr.Pos, "@@id requires a column list.")
		return
	}
	table.PrimaryKey = &schema.PrimaryKey{
		Name:    namedArg(attr.Args, "name"),
		Columns: columns,
	}
}

func (c *converter) convertTableIndex(table *schema.Table, attr *blockAttr, unique bool) {
	columns := listArg(attr.Args)
	if len(columns) == 0 {
		c.errorf(attr.Pos, "@@%s requires a column list.", attr.Name)
		return
	}

	suffix := "idx"
	if unique {
		suffix = "key"
	}
	name := namedArg(attr.Args, "name")
	if name == "" {
		name = fmt.Sprintf("%s_%s_%s", table.Name, strings.Join(columns, "_"), suffix)
	}

	index := schema.Index{
		Name:    name,
		Columns: columns,
		Unique:  unique,
		Span:    spanAt(attr.Pos),
	}

	if algo := namedArg(attr.Args, "type"); algo != "" {
		parsed, ok := parseIndexAlgorithm(algo)
		if !ok {
			c.errorf(attr.Pos, "Unknown index type %q.", algo)
			return
		}
		index.Algorithm = parsed
	}

	table.Indexes = append(table.Indexes, index)
}

func (c *converter) convertForeignKey(table *schema.Table, attr *blockAttr) {
	columns := listArg(attr.Args)
	if len(columns) == 0 {
		c.errorf(attr.Pos, "@@fk requires a column list.")
		return
	}

	var ref *columnRef
	for _, arg := range attr.Args {
		if arg.Name == "references" && arg.Value.Ref != nil {
			ref = arg.Value.Ref
		}
	}
	if ref == nil {
		c.errorf(attr.Pos, "@@fk requires references: Table([columns]).")
		return
	}

	fk := schema.ForeignKey{
		ConstraintName:    namedArg(attr.Args, "name"),
		Columns:           columns,
		ReferencedTable:   ref.Table,
		ReferencedColumns: ref.Columns,
		Span:              spanAt(attr.Pos),
	}
	if fk.ConstraintName == "" {
		fk.ConstraintName = fmt.Sprintf("%s_%s_fkey", table.Name, strings.Join(columns, "_"))
	}

	for _, arg := range attr.Args {
		if arg.Name != "onDelete" && arg.Name != "onUpdate" {
			continue
		}
		if arg.Value.Ident == nil {
			c.errorf(arg.Pos, "%s expects an action name.", arg.Name)
			continue
		}
		action, err := connector.ParseReferentialAction(*arg.Value.Ident)
		if err != nil {
			c.errorf(arg.Pos, "Unknown referential action %q.", *arg.Value.Ident)
			continue
		}
		if arg.Name == "onDelete" {
			fk.OnDelete = action
		} else {
			fk.OnUpdate = action
		}
	}

	table.ForeignKeys = append(table.ForeignKeys, fk)
}

// listArg returns the first positional column list among the arguments.
func listArg(args []*attrArg) []string {
	for _, arg := range args {
		if arg.Name == "" && arg.Value.List != nil {
			return arg.Value.List
		}
	}
	return nil
}

// namedArg returns the string or identifier value of a named argument.
func namedArg(args []*attrArg, name string) string {
	for _, arg := range args {
		if arg.Name != name {
			continue
		}
		if arg.Value.Str != nil {
			return *arg.Value.Str
		}
		if arg.Value.Ident != nil {
			return *arg.Value.Ident
		}
	}
	return ""
}

func numberArgs(args []*attrArg) []int {
	var numbers []int
	for _, arg := range args {
		if arg.Value.Number != nil {
			numbers = append(numbers, *arg.Value.Number)
		}
	}
	return numbers
}

func attrName(attr *fieldAttr) string {
	if attr.Sub != "" {
		return attr.Name + "." + attr.Sub
	}
	return attr.Name
}

func parseIndexAlgorithm(name string) (connector.IndexAlgorithm, bool) {
	switch name {
	case "BTree":
		return connector.IndexAlgorithmBTree, true
	case "Hash":
		return connector.IndexAlgorithmHash, true
	case "Gist":
		return connector.IndexAlgorithmGist, true
	case "Gin":
		return connector.IndexAlgorithmGin, true
	case "SpGist":
		return connector.IndexAlgorithmSpGist, true
	case "Brin":
		return connector.IndexAlgorithmBrin, true
	default:
		return connector.IndexAlgorithmBTree, false
	}
}

func spanAt(pos lexer.Position) diagnostics.Span {
	return diagnostics.NewSpan(pos.Offset, pos.Offset, 1)
}
