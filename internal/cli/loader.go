package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/qrm/internal/qrm"
	"github.com/roach88/qrm/internal/querydef"
	"github.com/roach88/qrm/internal/schema"
	"github.com/roach88/qrm/internal/store"
)

// session is the state shared by commands that build queries: an optional
// open database, an entity schema and a manager over both.
type session struct {
	store   *store.Store
	schema  schema.Introspector
	dialect store.Dialect
	manager *qrm.Manager
}

func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// openSession resolves the configuration into a session. A database is
// opened when a DSN is configured or needDB is set; the schema comes from the
// schema file when one is configured and from the database otherwise.
func openSession(ctx context.Context, opts *RootOptions, f *OutputFormatter, needDB bool) (*session, error) {
	cfg := opts.Config()
	logger := opts.Logger()

	dialect, err := store.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "invalid driver", err)
	}
	s := &session{dialect: dialect}

	if cfg.DSN != "" {
		logger.Debug("opening database", "driver", cfg.Driver)
		s.store, err = store.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeConnect, "failed to open database", err)
		}
	} else if needDB {
		return nil, f.Fail(ExitCommandError, ErrCodeNoConnection, "a database is required: set --dsn or QRM_DSN", nil)
	}

	switch {
	case cfg.Schema != "":
		if _, err := os.Stat(cfg.Schema); err != nil {
			s.Close()
			return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("schema file not found: %s", cfg.Schema), nil)
		}
		static, err := schema.LoadFile(cfg.Schema)
		if err != nil {
			s.Close()
			return nil, f.Fail(ExitCommandError, ErrCodeSchemaLoad, "failed to load schema", err)
		}
		s.schema = static
	case s.store != nil:
		in, err := schema.ForDialect(dialect, s.store)
		if err != nil {
			s.Close()
			return nil, f.Fail(ExitCommandError, ErrCodeSchemaLoad, "no introspection for driver", err)
		}
		s.schema = schema.NewCached(in)
	default:
		return nil, f.Fail(ExitCommandError, ErrCodeSchemaLoad, "no schema: set --schema or --dsn", nil)
	}

	mopts := []qrm.Option{qrm.WithDialect(dialect), qrm.WithLogger(logger)}
	if s.store != nil {
		mopts = append(mopts, qrm.WithConnection(s.store))
	}
	if cfg.Strict {
		mopts = append(mopts, qrm.WithStrictParams())
	}
	s.manager = qrm.New(s.schema, mopts...)
	return s, nil
}

// buildQuery loads a query definition and builds it against the session.
func (s *session) buildQuery(ctx context.Context, path string, f *OutputFormatter) (*qrm.Query, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("query file not found: %s", path), nil)
	}
	def, err := querydef.Load(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeQueryLoad, "failed to load query", err)
	}
	q, err := def.Build(ctx, s.manager)
	if err != nil {
		return nil, f.Fail(ExitFailure, ErrCodeBuildFailed, "failed to build query", err)
	}
	return q, nil
}
