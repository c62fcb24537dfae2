package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

func TestForConnectorDispatch(t *testing.T) {
	for provider, want := range map[string]Introspector{
		"postgresql":  &postgresIntrospector{},
		"cockroachdb": &postgresIntrospector{},
		"mysql":       &mysqlIntrospector{},
		"sqlite":      &sqliteIntrospector{},
		"sqlserver":   &mssqlIntrospector{},
	} {
		conn, err := connector.ForProvider(provider)
		require.NoError(t, err)

		got, err := ForConnector(nil, conn)
		require.NoError(t, err, provider)
		assert.IsType(t, want, got, provider)
	}
}

func TestParseReferentialAction(t *testing.T) {
	assert.Equal(t, connector.ReferentialActionCascade, parseReferentialAction("CASCADE"))
	assert.Equal(t, connector.ReferentialActionSetNull, parseReferentialAction("SET NULL"))
	assert.Equal(t, connector.ReferentialActionSetDefault, parseReferentialAction("set default"))
	assert.Equal(t, connector.ReferentialActionRestrict, parseReferentialAction("RESTRICT"))
	assert.Equal(t, connector.ReferentialActionNoAction, parseReferentialAction("NO ACTION"))
	assert.Equal(t, connector.ReferentialActionNoAction, parseReferentialAction(""))
}

func TestParseDefault(t *testing.T) {
	assert.Nil(t, parseDefault("", connector.ScalarTypeString))
	assert.Nil(t, parseDefault("nextval('User_id_seq'::regclass)", connector.ScalarTypeInt))

	now := parseDefault("CURRENT_TIMESTAMP", connector.ScalarTypeDateTime)
	require.NotNil(t, now)
	assert.Equal(t, schema.DefaultFunction, now.Kind)
	assert.Equal(t, "now", now.Value)

	assert.Equal(t, &schema.DefaultValue{Kind: schema.DefaultFunction, Value: "now"},
		parseDefault("now()", connector.ScalarTypeDateTime))
	assert.Equal(t, &schema.DefaultValue{Kind: schema.DefaultFunction, Value: "now"},
		parseDefault("getdate()", connector.ScalarTypeDateTime))
	assert.Equal(t, &schema.DefaultValue{Kind: schema.DefaultFunction, Value: "uuid"},
		parseDefault("gen_random_uuid()", connector.ScalarTypeString))

	// Postgres wraps text defaults in a cast.
	assert.Equal(t, &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: "hello"},
		parseDefault("'hello'::text", connector.ScalarTypeString))
	assert.Equal(t, &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: "it's"},
		parseDefault("'it''s'", connector.ScalarTypeString))

	assert.Equal(t, &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: "42"},
		parseDefault("42", connector.ScalarTypeInt))
	assert.Equal(t, &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: "true"},
		parseDefault("1", connector.ScalarTypeBoolean))
	assert.Equal(t, &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: "false"},
		parseDefault("false", connector.ScalarTypeBoolean))

	gen := parseDefault("lower(name)", connector.ScalarTypeString)
	require.NotNil(t, gen)
	assert.Equal(t, schema.DefaultDBGenerated, gen.Kind)
}

func TestSplitGroupedColumns(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitGroupedColumns("{a,b}"))
	assert.Equal(t, []string{"a", "b"}, splitGroupedColumns("a, b"))
	assert.Equal(t, []string{"userId"}, splitGroupedColumns(`{"userId"}`))
	assert.Nil(t, splitGroupedColumns(""))
	assert.Nil(t, splitGroupedColumns("{}"))
}

func TestMapPostgresType(t *testing.T) {
	enums := map[string]bool{"Role": true}

	scalar, native := mapPostgresType("int4", 0, 0, 0, enums)
	assert.Equal(t, connector.ScalarTypeInt, scalar)
	require.NotNil(t, native)
	assert.Equal(t, "Integer", native.Name)

	scalar, native = mapPostgresType("varchar", 255, 0, 0, enums)
	assert.Equal(t, connector.ScalarTypeString, scalar)
	assert.Equal(t, &connector.NativeTypeInstance{Name: "VarChar", Args: []int{255}}, native)

	scalar, native = mapPostgresType("numeric", 0, 10, 2, enums)
	assert.Equal(t, connector.ScalarTypeDecimal, scalar)
	assert.Equal(t, &connector.NativeTypeInstance{Name: "Decimal", Args: []int{10, 2}}, native)

	scalar, native = mapPostgresType("Role", 0, 0, 0, enums)
	assert.Equal(t, connector.ScalarTypeEnum, scalar)
	require.NotNil(t, native)
	assert.Equal(t, "Role", native.Name)

	scalar, _ = mapPostgresType("jsonb", 0, 0, 0, enums)
	assert.Equal(t, connector.ScalarTypeJson, scalar)
}

func TestMapMySQLType(t *testing.T) {
	scalar, native := mapMySQLType("varchar(191)")
	assert.Equal(t, connector.ScalarTypeString, scalar)
	assert.Equal(t, &connector.NativeTypeInstance{Name: "VarChar", Args: []int{191}}, native)

	scalar, native = mapMySQLType("tinyint(1)")
	assert.Equal(t, connector.ScalarTypeBoolean, scalar)
	assert.Equal(t, "Bool", native.Name)

	scalar, native = mapMySQLType("tinyint(4)")
	assert.Equal(t, connector.ScalarTypeInt, scalar)
	assert.Equal(t, "TinyInt", native.Name)

	scalar, native = mapMySQLType("decimal(10,2)")
	assert.Equal(t, connector.ScalarTypeDecimal, scalar)
	assert.Equal(t, []int{10, 2}, native.Args)

	scalar, native = mapMySQLType("enum('ADMIN','USER')")
	assert.Equal(t, connector.ScalarTypeEnum, scalar)
	assert.Nil(t, native)

	scalar, native = mapMySQLType("int unsigned")
	assert.Equal(t, connector.ScalarTypeInt, scalar)
	assert.Equal(t, "UnsignedInt", native.Name)
}

func TestMapSQLiteType(t *testing.T) {
	cases := map[string]connector.ScalarType{
		"INTEGER":      connector.ScalarTypeInt,
		"BIGINT":       connector.ScalarTypeBigInt,
		"TEXT":         connector.ScalarTypeString,
		"VARCHAR(50)":  connector.ScalarTypeString,
		"REAL":         connector.ScalarTypeFloat,
		"DECIMAL(9,2)": connector.ScalarTypeDecimal,
		"BOOLEAN":      connector.ScalarTypeBoolean,
		"DATETIME":     connector.ScalarTypeDateTime,
		"BLOB":         connector.ScalarTypeBytes,
		"":             connector.ScalarTypeBytes,
	}
	for declared, want := range cases {
		scalar, _ := mapSQLiteType(declared)
		assert.Equal(t, want, scalar, "declared type %q", declared)
	}
}

func TestStripMSSQLParens(t *testing.T) {
	assert.Equal(t, "0", stripMSSQLParens("((0))"))
	assert.Equal(t, "getdate()", stripMSSQLParens("(getdate())"))
	assert.Equal(t, "N'abc'", stripMSSQLParens("(N'abc')"))
}
