package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/storage/jsonstore"
	"github.com/julianstephens/habitual/internal/storage/postgres"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

// IsPostgres reports whether target is a PostgreSQL URL.
func IsPostgres(target string) bool {
	return strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://")
}

// OpenStore picks a backend for target without loading it: a postgres:// URL,
// a *.json document or a SQLite path. Embedded passwords are rejected unless
// allowCredentials is set, which callers do for values read from the keyring
// or the environment.
func OpenStore(target string, allowCredentials bool) (storage.Provider, error) {
	switch {
	case IsPostgres(target):
		if _, err := postgres.ValidateConnString(target); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, err
			}
			if !allowCredentials {
				return nil, fmt.Errorf("%w: use the OS keyring (habitual keyring set), the environment or .pgpass instead", err)
			}
		}
		return postgres.New(target), nil
	case strings.HasSuffix(strings.ToLower(target), ".json"):
		return jsonstore.NewStore(config.ExpandHome(target)), nil
	default:
		return sqlite.NewStore(config.ExpandHome(target)), nil
	}
}
