package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/diagnostics"
	"github.com/schemaforge/schemaforge/internal/debug"
	"github.com/schemaforge/schemaforge/internal/ui"
	"github.com/schemaforge/schemaforge/migrate/introspect"
	"github.com/schemaforge/schemaforge/runtime/pool"
	"github.com/schemaforge/schemaforge/schema"
	"github.com/schemaforge/schemaforge/schema/sdl"
)

// schemaPath resolves the definition file path from the flag, a positional
// argument or the configuration, in that order.
func schemaPath(args []string) string {
	if flagSchema != "" {
		return flagSchema
	}
	if len(args) > 0 {
		return args[0]
	}
	return cfg.SchemaPath
}

// loadDefinition parses and validates the definition file and resolves its
// connector. Parse and validation errors are rendered with source context
// before a terse error is returned.
func loadDefinition(path string) (*schema.Schema, connector.Connector, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading definition: %w", err)
	}

	s, err := sdl.Parse(path, string(content))
	if err != nil {
		var parseErr *sdl.ParseError
		if errors.As(err, &parseErr) {
			fmt.Fprint(os.Stderr, parseErr.Diagnostics.ToPrettyString(path, string(content)))
			return nil, nil, fmt.Errorf("definition has errors")
		}
		return nil, nil, err
	}

	conn, err := resolveConnector(s)
	if err != nil {
		return nil, nil, err
	}

	diags := diagnostics.NewDiagnostics()
	schema.Validate(s, conn, &diags)
	if warnings := diags.Warnings(); len(warnings) > 0 {
		fmt.Fprint(os.Stderr, diags.WarningsToPrettyString(path, string(content)))
	}
	if diags.HasErrors() {
		fmt.Fprint(os.Stderr, diags.ToPrettyString(path, string(content)))
		return nil, nil, fmt.Errorf("definition has errors")
	}

	debug.Debug("definition loaded", "path", path,
		"tables", len(s.Tables), "enums", len(s.Enums), "provider", conn.Name())
	return s, conn, nil
}

// resolveConnector picks the provider from the flag, the configuration or
// the definition's datasource, in that order.
func resolveConnector(s *schema.Schema) (connector.Connector, error) {
	provider := flagProvider
	if provider == "" {
		provider = cfg.Provider
	}
	if provider == "" && s != nil && s.Datasource != nil {
		provider = s.Datasource.Provider
	}
	if provider == "" {
		return nil, fmt.Errorf("no provider configured; set one in the definition's datasource block or pass --provider")
	}
	return connector.ForProvider(provider)
}

// databaseURL resolves the connection string from the flag, the
// configuration or the definition's datasource.
func databaseURL(s *schema.Schema) (string, error) {
	url := flagURL
	if url == "" {
		url = cfg.DatabaseURL
	}
	if url == "" && s != nil && s.Datasource != nil {
		url = s.Datasource.URL
	}
	if url == "" {
		return "", fmt.Errorf("no database URL configured; set DATABASE_URL or pass --url")
	}
	return url, nil
}

// detectProvider guesses the provider from a connection string scheme.
func detectProvider(url string) string {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgresql"
	case strings.HasPrefix(url, "mysql://"):
		return "mysql"
	case strings.HasPrefix(url, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(url, "cockroachdb://"):
		return "cockroachdb"
	case strings.HasPrefix(url, "file:"), strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return "sqlite"
	default:
		return ""
	}
}

// connectionString strips the URL scheme where the database/sql driver
// expects a bare DSN.
func connectionString(conn connector.Connector, url string) string {
	if conn.Flavour() == connector.FlavourSQLite {
		return strings.TrimPrefix(url, "file:")
	}
	if conn.Flavour() == connector.FlavourMySQL {
		return strings.TrimPrefix(url, "mysql://")
	}
	return url
}

// openPool validates the URL against the connector and opens a pool.
func openPool(conn connector.Connector, url string) (*pool.Pool, error) {
	if err := conn.ValidateURL(url); err != nil {
		return nil, err
	}
	p, err := pool.Open(providerName(conn), connectionString(conn, url), pool.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return p, nil
}

func providerName(conn connector.Connector) string {
	switch conn.Flavour() {
	case connector.FlavourPostgres:
		return "postgresql"
	case connector.FlavourMySQL:
		return "mysql"
	case connector.FlavourSQLite:
		return "sqlite"
	case connector.FlavourSQLServer:
		return "sqlserver"
	case connector.FlavourCockroach:
		return "cockroachdb"
	default:
		return ""
	}
}

// introspectDatabase reads the live schema through the pool.
func introspectDatabase(ctx context.Context, p *pool.Pool, conn connector.Connector) (*schema.Schema, error) {
	spinner, _ := ui.Spinner("Introspecting database")
	intro, err := introspect.ForConnector(p.DB(), conn)
	if err != nil {
		if spinner != nil {
			spinner.Fail("introspection unavailable")
		}
		return nil, err
	}
	live, err := intro.Introspect(ctx)
	if spinner != nil {
		if err != nil {
			spinner.Fail("introspection failed")
		} else {
			spinner.Success(fmt.Sprintf("Found %d tables", len(live.Tables)))
		}
	}
	return live, err
}
