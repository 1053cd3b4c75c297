package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/snowflakedb/gosnowflake"

	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Service owns the warehouse connection pool.
type Service struct {
	db             *sql.DB
	dialect        Dialect
	config         models.Warehouse
	layers         models.Layers
	timeout        time.Duration
	connected      bool
	circuitBreaker *errors.CircuitBreaker
	logger         zerolog.Logger
}

// NewService validates the driver and prepares a service. Call Connect
// before use.
func NewService(config models.Warehouse, layers models.Layers, logger zerolog.Logger) (*Service, error) {
	dialect, err := ParseDialect(config.Driver)
	if err != nil {
		return nil, err
	}

	var timeout time.Duration
	if config.Timeout != "" {
		timeout, err = time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("invalid timeout %q", config.Timeout), "warehouse.timeout")
		}
	}

	s := &Service{
		dialect: dialect,
		config:  config,
		layers:  layers,
		timeout: timeout,
		logger:  logger.With().Str("component", "warehouse").Str("driver", string(dialect)).Logger(),
	}
	s.circuitBreaker = s.newCircuitBreaker()
	return s, nil
}

// NewWithDB wraps an already open pool, e.g. a sqlmock connection.
func NewWithDB(db *sql.DB, dialect Dialect, layers models.Layers, logger zerolog.Logger) *Service {
	s := &Service{
		db:        db,
		dialect:   dialect,
		layers:    layers,
		connected: true,
		logger:    logger,
	}
	s.circuitBreaker = s.newCircuitBreaker()
	return s
}

// newCircuitBreaker pauses connects after five straight failures and logs
// every state change.
func (s *Service) newCircuitBreaker() *errors.CircuitBreaker {
	cb := errors.NewCircuitBreaker(string(s.dialect), 5, 30*time.Second)
	cb.OnStateChange = func(name string, from, to errors.CircuitState) {
		event := s.logger.Info()
		if to == errors.StateOpen {
			event = s.logger.Warn()
		}
		event.Str("circuit", name).Stringer("from", from).Stringer("to", to).Msg("warehouse circuit changed state")
	}
	return cb
}

// Connect opens the pool and pings it, retrying recoverable failures.
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	return s.circuitBreaker.Execute(ctx, func() error {
		return errors.Retry(ctx, s.retryConfig(), func(ctx context.Context) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			pingCtx, cancel := s.Context(ctx)
			defer cancel()

			if err := db.PingContext(pingCtx); err != nil {
				db.Close()

				msg := strings.ToLower(err.Error())
				if strings.Contains(msg, "authentication") || strings.Contains(msg, "password") {
					return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
						WithContext("user", s.config.Username).
						WithSuggestions(
							"Verify your username and password",
							"Run 'salesdw setup' to store a new password",
						)
				}

				return errors.ConnectionError("Failed to connect to the warehouse", err).
					WithContext("driver", string(s.dialect)).
					AsRecoverable()
			}

			s.db = db
			s.connected = true
			s.logger.Debug().Msg("connected")
			return nil
		})
	})
}

func (s *Service) retryConfig() *errors.RetryConfig {
	cfg := errors.DefaultRetryConfig()
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("retrying warehouse connection")
	}
	return cfg
}

func (s *Service) open() (*sql.DB, error) {
	if s.dialect == SQLite {
		db := sql.OpenDB(&sqliteConnector{
			driver: &sqlite3.SQLiteDriver{ConnectHook: s.attachLayers},
			dsn:    s.sqliteDSN(),
		})
		// Attached in-memory databases live in a single connection.
		db.SetMaxOpenConns(1)
		return db, nil
	}

	dsn, err := s.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(s.dialect.DriverName(), dsn)
	if err != nil {
		return nil, errors.ConnectionError("Failed to open warehouse connection", err).
			WithContext("driver", string(s.dialect))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)
	return db, nil
}

// DSN builds the driver connection string. An explicit warehouse.dsn wins.
func (s *Service) DSN() (string, error) {
	if s.config.DSN != "" {
		return s.config.DSN, nil
	}

	switch s.dialect {
	case Snowflake:
		dsn, err := gosnowflake.DSN(&gosnowflake.Config{
			Account:   s.config.Account,
			User:      s.config.Username,
			Password:  s.config.Password,
			Database:  s.config.Database,
			Warehouse: s.config.Warehouse,
			Role:      s.config.Role,
		})
		if err != nil {
			return "", errors.ConfigError(fmt.Sprintf("invalid snowflake settings: %v", err), "warehouse")
		}
		return dsn, nil
	case Postgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(s.config.Username, s.config.Password),
			Host:   s.config.Host,
			Path:   "/" + s.config.Database,
		}
		if s.config.Port != 0 {
			u.Host = s.config.Host + ":" + strconv.Itoa(s.config.Port)
		}
		sslMode := s.config.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u.RawQuery = url.Values{"sslmode": []string{sslMode}}.Encode()
		return u.String(), nil
	case DuckDB:
		return s.config.Path, nil
	default:
		return s.sqliteDSN(), nil
	}
}

func (s *Service) sqliteDSN() string {
	if s.config.Path == "" {
		return ":memory:"
	}
	return s.config.Path
}

// schemaFile names the database file holding one attached schema.
func (s *Service) schemaFile(schema string) string {
	if s.config.Path == "" {
		return ":memory:"
	}
	ext := filepath.Ext(s.config.Path)
	return strings.TrimSuffix(s.config.Path, ext) + "_" + schema + ext
}

func (s *Service) attachLayers(conn *sqlite3.SQLiteConn) error {
	for _, schema := range []string{s.layers.Bronze, s.layers.Silver, s.layers.Gold} {
		if schema == "" {
			continue
		}
		stmt := fmt.Sprintf("ATTACH DATABASE '%s' AS %s", strings.ReplaceAll(s.schemaFile(schema), "'", "''"), schema)
		if _, err := conn.Exec(stmt, nil); err != nil {
			return fmt.Errorf("failed to attach schema %s: %w", schema, err)
		}
	}
	return nil
}

// Close closes the pool.
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	s.connected = false
	return nil
}

func (s *Service) DB() *sql.DB           { return s.db }
func (s *Service) Dialect() Dialect      { return s.dialect }
func (s *Service) Layers() models.Layers { return s.layers }

// Bronze and Silver qualify a table name with its layer schema.
func (s *Service) Bronze(table string) string { return s.dialect.Table(s.layers.Bronze, table) }
func (s *Service) Silver(table string) string { return s.dialect.Table(s.layers.Silver, table) }
func (s *Service) Gold(table string) string   { return s.dialect.Table(s.layers.Gold, table) }

// Context derives a context bounded by warehouse.timeout.
func (s *Service) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}

func (s *Service) ensureConnected() error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to the warehouse").
			WithSuggestions("Call Connect() before executing SQL")
	}
	return nil
}

// BeginTx starts a transaction on the pool.
func (s *Service) BeginTx(ctx context.Context) (*sql.Tx, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}
	return tx, nil
}

// InTx runs fn in a transaction, committing when it returns nil and rolling
// back otherwise.
func (s *Service) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit transaction")
	}
	return nil
}

// ExecuteSQL runs a semicolon separated script in one transaction.
func (s *Service) ExecuteSQL(ctx context.Context, script string) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}

	statements := SplitStatements(script)
	return s.InTx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.SQLError(
					fmt.Sprintf("Failed to execute statement %d", i+1),
					stmt,
					err,
				).WithContext("statement_index", i+1).
					WithContext("total_statements", len(statements)).
					WithContext("sqlstate", SQLState(err))
			}
		}
		return nil
	})
}

// QueryInt runs a query returning a single integer, e.g. a COUNT(*).
func (s *Service) QueryInt(ctx context.Context, q Querier, query string, args ...interface{}) (int64, error) {
	var n sql.NullInt64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.SQLError("Failed to run query", query, err).
			WithContext("sqlstate", SQLState(err))
	}
	return n.Int64, nil
}

// Ping checks the connection.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}
	ctx, cancel := s.Context(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// SplitStatements splits on semicolons outside quoted strings and drops
// empty statements.
func SplitStatements(script string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := rune(0)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, char := range script {
		switch {
		case inString:
			if char == stringChar {
				inString = false
			}
		case char == '\'' || char == '"':
			inString = true
			stringChar = char
		case char == ';':
			flush()
			continue
		}
		current.WriteRune(char)
	}
	flush()

	return statements
}

type sqliteConnector struct {
	driver *sqlite3.SQLiteDriver
	dsn    string
}

func (c *sqliteConnector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c *sqliteConnector) Driver() driver.Driver {
	return c.driver
}
