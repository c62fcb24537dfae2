package runtime

// The supported database/sql drivers, registered on import so pool.Open can
// resolve them by provider name.
import (
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)
