package schema

import (
	"context"

	"github.com/rs/zerolog"

	"salesdw/internal/warehouse"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

// Options selects what Apply creates.
type Options struct {
	Views bool // Also replace the gold views
}

// TableState is the live state of one layer table.
type TableState struct {
	Layer  string
	Table  string
	Exists bool
	Rows   int64
}

// Service applies and inspects the warehouse layout.
type Service struct {
	wh     *warehouse.Service
	logger zerolog.Logger
}

func NewService(wh *warehouse.Service, logger zerolog.Logger) *Service {
	return &Service{
		wh:     wh,
		logger: logger.With().Str("component", "schema").Logger(),
	}
}

// Plan returns the statements Apply would run.
func (s *Service) Plan(opts Options) ([]string, error) {
	d, layers := s.wh.Dialect(), s.wh.Layers()
	stmts := TableStatements(d, layers)
	if !opts.Views {
		return stmts, nil
	}
	if d == warehouse.SQLite {
		// A persistent SQLite view cannot reference another attached database.
		s.logger.Warn().Msg("Gold views are not supported on sqlite; skipping")
		return stmts, nil
	}
	views, err := ViewStatements(d, layers)
	if err != nil {
		return nil, err
	}
	return append(stmts, views...), nil
}

// Apply creates every missing schema and table, and optionally the gold
// views, in one transaction. Existing tables are left untouched.
func (s *Service) Apply(ctx context.Context, opts Options) error {
	stmts, err := s.Plan(opts)
	if err != nil {
		return err
	}

	s.logger.Info().
		Int("statements", len(stmts)).
		Bool("views", opts.Views).
		Msg("Applying warehouse schema")

	if err := s.wh.ExecuteSQL(ctx, Script(stmts)); err != nil {
		return errors.Wrap(err, errors.GetErrorCode(err), "Failed to apply schema")
	}

	s.logger.Info().Msg("Warehouse schema applied")
	return nil
}

// Status reports whether each bronze and silver table exists and how many
// rows it holds.
func (s *Service) Status(ctx context.Context) ([]TableState, error) {
	layers := s.wh.Layers()
	var states []TableState
	for _, layer := range []string{layers.Bronze, layers.Silver} {
		for _, t := range models.Tables {
			state := TableState{Layer: layer, Table: t.Name}
			qualified := s.wh.Dialect().Table(layer, t.Name)

			qctx, cancel := s.wh.Context(ctx)
			n, err := s.wh.QueryInt(qctx, s.wh.DB(), "SELECT COUNT(*) FROM "+qualified)
			cancel()

			switch {
			case err == nil:
				state.Exists, state.Rows = true, n
			case errors.GetErrorCode(err) == errors.ErrCodeSQLObjectNotFound:
			default:
				return nil, err
			}
			states = append(states, state)
		}
	}
	return states, nil
}
