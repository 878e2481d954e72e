package guard

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"stockpipeline/internal/config"
	"stockpipeline/internal/failure"
)

// StoreChecker is the part of the store the connection guard probes.
//
//go:generate mockgen -package=guard -destination=mock_store_checker_test.go -source=guard.go StoreChecker
type StoreChecker interface {
	Ping(ctx context.Context) error
	TableExists(ctx context.Context) (bool, error)
	Table() string
}

// CheckEnvironment verifies every required credential is set. It performs
// no I/O; the returned configuration failure names all missing credentials.
func CheckEnvironment(creds []config.Credential) error {
	var missing []string
	for _, c := range creds {
		if strings.TrimSpace(c.Value) == "" {
			missing = append(missing, c.Name)
		}
	}

	if len(missing) > 0 {
		return failure.Configuration("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateStore checks the store is reachable and the quotes table exists.
// Connections come from the pool and are released on every path.
func ValidateStore(ctx context.Context, s StoreChecker) error {
	if err := s.Ping(ctx); err != nil {
		return failure.Connectivity(err, "database is unreachable")
	}

	exists, err := s.TableExists(ctx)
	if err != nil {
		if lostConnection(err) {
			return failure.Connectivity(err, "database connection lost while checking table %s", s.Table())
		}
		return failure.Schema(err, "could not verify table %s", s.Table())
	}
	if !exists {
		return failure.Schema(nil, "table %s does not exist", s.Table())
	}

	return nil
}

// lostConnection reports whether err came from the connection rather than
// from the server executing the query.
func lostConnection(err error) bool {
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	return !errors.As(err, &pgErr)
}
