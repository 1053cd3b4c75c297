package models

// Config is the on-disk configuration of the warehouse pipeline.
type Config struct {
	Warehouse   Warehouse   `yaml:"warehouse"`
	Layers      Layers      `yaml:"layers"`
	Pipeline    Pipeline    `yaml:"pipeline"`
	Quality     Quality     `yaml:"quality"`
	Standardize Standardize `yaml:"standardize"`
	Ingest      Ingest      `yaml:"ingest"`
	Logging     Logging     `yaml:"logging"`
	Metrics     Metrics     `yaml:"metrics"`
	Lock        Lock        `yaml:"lock"`
}

// Warehouse holds connection settings. Only the fields relevant to the
// chosen driver are read.
type Warehouse struct {
	Driver    string `yaml:"driver"`    // snowflake, postgres, duckdb, sqlite
	DSN       string `yaml:"dsn"`       // Overrides the individual fields when set
	Account   string `yaml:"account"`   // snowflake
	Host      string `yaml:"host"`      // postgres
	Port      int    `yaml:"port"`      // postgres
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`  // Empty means look up the OS keyring
	Database  string `yaml:"database"`
	Warehouse string `yaml:"warehouse"` // snowflake virtual warehouse
	Role      string `yaml:"role"`      // snowflake
	Path      string `yaml:"path"`      // duckdb/sqlite file; empty is in-memory
	SSLMode   string `yaml:"ssl_mode"`  // postgres
	Timeout   string `yaml:"timeout"`   // e.g. "30s"
}

// Layers names the schema of each medallion layer.
type Layers struct {
	Bronze string `yaml:"bronze"`
	Silver string `yaml:"silver"`
	Gold   string `yaml:"gold"`
}

// Pipeline controls the silver load.
type Pipeline struct {
	// TransactionMode is "table" (commit each table on its own) or
	// "batch" (all six tables commit or roll back together).
	TransactionMode string `yaml:"transaction_mode"`
	BatchSize       int    `yaml:"batch_size"` // Rows per INSERT statement
}

// Quality controls the quality check run.
type Quality struct {
	Parallelism int `yaml:"parallelism"`
	DetailLimit int `yaml:"detail_limit"`
}

// Standardize extends the built-in code tables. Keys are table names
// (marital_status, gender_crm, gender_erp, product_line, country); values
// map a raw code to its canonical label.
type Standardize struct {
	Aliases map[string]map[string]string `yaml:"aliases"`
}

// Ingest configures the bronze CSV loader.
type Ingest struct {
	SourceDir string `yaml:"source_dir"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Metrics configures batch metrics export.
type Metrics struct {
	Textfile string `yaml:"textfile"` // Prometheus textfile path; empty disables export
}

// Lock configures the single-run guard.
type Lock struct {
	Path string `yaml:"path"`
}
