package diff

import (
	"strings"

	"github.com/schemaforge/schemaforge/connector"
)

// diffFlavour holds the per-backend comparison quirks the differ needs.
type diffFlavour struct {
	// caseInsensitiveTables folds table names before matching. MySQL on
	// default settings stores lowercased table names on some filesystems.
	caseInsensitiveTables bool
	// ignoredTables are never diffed, in either direction.
	ignoredTables map[string]struct{}
	// rebuildOnAlter folds every column change on a table into one rebuild
	// step, for backends without ALTER COLUMN.
	rebuildOnAlter bool
}

func flavourFor(f connector.Flavour) diffFlavour {
	ignored := map[string]struct{}{
		// The migration ledger manages itself.
		"_schemaforge_migrations": {},
	}
	switch f {
	case connector.FlavourMySQL:
		return diffFlavour{caseInsensitiveTables: true, ignoredTables: ignored}
	case connector.FlavourSQLite:
		ignored["sqlite_sequence"] = struct{}{}
		return diffFlavour{ignoredTables: ignored, rebuildOnAlter: true}
	default:
		return diffFlavour{ignoredTables: ignored}
	}
}

func (f diffFlavour) tableKey(name string) string {
	if f.caseInsensitiveTables {
		return strings.ToLower(name)
	}
	return name
}

func (f diffFlavour) ignores(name string) bool {
	_, ok := f.ignoredTables[f.tableKey(name)]
	return ok
}
