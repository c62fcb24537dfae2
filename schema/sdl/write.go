package sdl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

// Format renders a schema as definition text that Parse accepts back.
// Introspected schemas go through here for `schemaforge introspect`.
func Format(s *schema.Schema) string {
	var b strings.Builder

	if s.Datasource != nil {
		name := s.Datasource.Name
		if name == "" {
			name = "db"
		}
		fmt.Fprintf(&b, "datasource %s {\n", name)
		fmt.Fprintf(&b, "  provider = %q\n", s.Datasource.Provider)
		b.WriteString("  url = env(\"DATABASE_URL\")\n")
		b.WriteString("}\n\n")
	}

	for i := range s.Enums {
		writeEnum(&b, &s.Enums[i])
	}
	for i := range s.Tables {
		writeTable(&b, &s.Tables[i])
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeEnum(b *strings.Builder, e *schema.Enum) {
	fmt.Fprintf(b, "enum %s {\n", e.Name)
	for _, v := range e.Values {
		fmt.Fprintf(b, "  %s\n", v)
	}
	b.WriteString("}\n\n")
}

func writeTable(b *strings.Builder, t *schema.Table) {
	fmt.Fprintf(b, "table %s {\n", t.Name)

	for i := range t.Columns {
		writeColumn(b, t, &t.Columns[i])
	}

	if pk := t.PrimaryKey; pk != nil && len(pk.Columns) > 1 {
		fmt.Fprintf(b, "  @@id([%s]%s)\n", strings.Join(pk.Columns, ", "), nameArg(pk.Name))
	}

	for _, idx := range t.Indexes {
		if isInlineUnique(t, idx) {
			continue
		}
		attr := "@@index"
		suffix := "idx"
		if idx.Unique {
			attr = "@@unique"
			suffix = "key"
		}
		args := nameArgUnlessDefault(idx.Name, defaultIndexName(t.Name, idx.Columns, suffix))
		if idx.Algorithm != connector.IndexAlgorithmBTree {
			args += ", type: " + indexAlgorithmName(idx.Algorithm)
		}
		fmt.Fprintf(b, "  %s([%s]%s)\n", attr, strings.Join(idx.Columns, ", "), args)
	}

	for _, fk := range t.ForeignKeys {
		args := nameArgUnlessDefault(fk.ConstraintName,
			fmt.Sprintf("%s_%s_fkey", t.Name, strings.Join(fk.Columns, "_")))
		fmt.Fprintf(b, "  @@fk([%s], references: %s([%s])%s, onDelete: %s, onUpdate: %s)\n",
			strings.Join(fk.Columns, ", "),
			fk.ReferencedTable, strings.Join(fk.ReferencedColumns, ", "),
			args, fk.OnDelete, fk.OnUpdate)
	}

	b.WriteString("}\n\n")
}

func writeColumn(b *strings.Builder, t *schema.Table, col *schema.Column) {
	typeName := col.Type.String()
	if col.Type == connector.ScalarTypeEnum && col.NativeType != nil {
		typeName = col.NativeType.Name
	}

	var attrs []string
	if pk := t.PrimaryKey; pk != nil && len(pk.Columns) == 1 && pk.Columns[0] == col.Name {
		attrs = append(attrs, "@id")
	}
	if name := inlineUniqueName(t, col.Name); name != "" {
		attrs = append(attrs, "@unique")
	}
	if col.AutoIncrement {
		attrs = append(attrs, "@default(autoincrement())")
	}
	if col.Default != nil {
		attrs = append(attrs, "@default("+defaultArg(col)+")")
	}
	if col.Type != connector.ScalarTypeEnum && col.NativeType != nil {
		attrs = append(attrs, "@db."+col.NativeType.String())
	}

	fmt.Fprintf(b, "  %s %s%s%s", col.Name, typeName, listMarker(col), optionalMarker(col))
	if len(attrs) > 0 {
		b.WriteString(" " + strings.Join(attrs, " "))
	}
	b.WriteString("\n")
}

func defaultArg(col *schema.Column) string {
	switch col.Default.Kind {
	case schema.DefaultFunction:
		return col.Default.Value + "()"
	case schema.DefaultDBGenerated:
		return fmt.Sprintf("dbgenerated(%q)", col.Default.Value)
	default:
		return literalArg(col)
	}
}

// literalArg picks the quoting that round-trips through the grammar:
// numbers and identifier-shaped values (enum members, true/false) go bare,
// everything else is a quoted string.
func literalArg(col *schema.Column) string {
	v := col.Default.Value
	if _, err := strconv.Atoi(v); err == nil {
		return v
	}
	if col.Type != connector.ScalarTypeString && isIdent(v) {
		return v
	}
	return strconv.Quote(v)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// isInlineUnique reports whether the index is expressible as @unique on its
// single column under the default constraint name.
func isInlineUnique(t *schema.Table, idx schema.Index) bool {
	return idx.Unique && len(idx.Columns) == 1 &&
		idx.Algorithm == connector.IndexAlgorithmBTree &&
		idx.Name == fmt.Sprintf("%s_%s_key", t.Name, idx.Columns[0])
}

func inlineUniqueName(t *schema.Table, column string) string {
	for _, idx := range t.Indexes {
		if isInlineUnique(t, idx) && idx.Columns[0] == column {
			return idx.Name
		}
	}
	return ""
}

func defaultIndexName(table string, columns []string, suffix string) string {
	return fmt.Sprintf("%s_%s_%s", table, strings.Join(columns, "_"), suffix)
}

func nameArg(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf(", name: %q", name)
}

func nameArgUnlessDefault(name, fallback string) string {
	if name == fallback {
		return ""
	}
	return nameArg(name)
}

func listMarker(col *schema.Column) string {
	if col.List {
		return "[]"
	}
	return ""
}

func optionalMarker(col *schema.Column) string {
	if col.Nullable {
		return "?"
	}
	return ""
}

func indexAlgorithmName(a connector.IndexAlgorithm) string {
	switch a {
	case connector.IndexAlgorithmHash:
		return "Hash"
	case connector.IndexAlgorithmGist:
		return "Gist"
	case connector.IndexAlgorithmGin:
		return "Gin"
	case connector.IndexAlgorithmSpGist:
		return "SpGist"
	case connector.IndexAlgorithmBrin:
		return "Brin"
	default:
		return "BTree"
	}
}
