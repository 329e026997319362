// Package database stores training datasets in a SQL database. Oracle, SQLite
// and PostgreSQL are supported.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	_ "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"appraisal/internal/types"
)

const table = "listings"

// dsn builds a properly encoded connection string for Oracle Autonomous Database
func dsn(username, password, host, port, service string, walletLocation string) string {
	if walletLocation != "" {
		// wallet-based mTLS
		return fmt.Sprintf(
			"oracle://%s:%s@%s:%s/%s?ssl=true&wallet_location=%s",
			url.PathEscape(username), url.PathEscape(password), host, port, service, url.PathEscape(walletLocation))
	}

	return (&url.URL{
		Scheme:   "oracle",
		User:     url.UserPassword(username, password),
		Host:     host + ":" + port,
		Path:     "/" + service,
		RawQuery: "ssl=true", // ADB requires TCPS
	}).String()
}

// DBConfig holds database connection configuration. DSN takes precedence over
// the Oracle connection fields.
type DBConfig struct {
	Driver         string
	DSN            string
	Host           string
	Port           string
	Service        string
	Username       string
	Password       string
	WalletLocation string
}

type dialect struct {
	driver string
	real   string
	int    string
	text   string
	// ifNotExists is false where CREATE TABLE IF NOT EXISTS is unsupported.
	ifNotExists bool
	placeholder func(n int) string
}

var dialects = map[string]dialect{
	"oracle": {
		driver: "oracle", real: "BINARY_DOUBLE", int: "NUMBER(10)", text: "VARCHAR2(64)",
		placeholder: func(n int) string { return fmt.Sprintf(":%d", n) },
	},
	"sqlite": {
		driver: "sqlite", real: "REAL", int: "INTEGER", text: "TEXT", ifNotExists: true,
		placeholder: func(int) string { return "?" },
	},
	"postgres": {
		driver: "postgres", real: "DOUBLE PRECISION", int: "BIGINT", text: "TEXT", ifNotExists: true,
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	},
}

// Database holds the database connection and configuration
type Database struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger
}

// NewDatabase opens and pings a connection. A nil logger discards output.
func NewDatabase(ctx context.Context, config DBConfig, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d, ok := dialects[config.Driver]
	if !ok {
		return nil, eris.Errorf("database: unsupported driver %q (want oracle, sqlite or postgres)", config.Driver)
	}
	connStr := config.DSN
	if connStr == "" {
		if config.Driver != "oracle" {
			return nil, eris.Errorf("database: dsn is required for %s", config.Driver)
		}
		connStr = dsn(config.Username, config.Password, config.Host, config.Port, config.Service, config.WalletLocation)
	}

	log.Info("connecting to database", zap.String("driver", config.Driver))
	db, err := sql.Open(d.driver, connStr)
	if err != nil {
		return nil, eris.Wrap(err, "database: open connection")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "database: ping")
	}
	if config.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	return &Database{db: db, dialect: d, log: log}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

type field struct {
	name string
	ptr  any
}

// fields lists the stored columns of l in table order.
func fields(l *types.Listing) []field {
	r := &l.Record
	return []field{
		{types.ColArea, &r.Area},
		{types.ColBedrooms, &r.Bedrooms},
		{types.ColBathrooms, &r.Bathrooms},
		{types.ColYearBuilt, &r.YearBuilt},
		{types.ColRenovationYear, &r.RenovationYear},
		{types.ColDistanceToCenter, &r.DistanceToCenter},
		{types.ColLotSize, &r.LotSize},
		{types.ColLocation, &r.Location},
		{types.ColRoadType, &r.RoadType},
		{types.ColZoning, &r.Zoning},
		{types.ColWaterSupply, &r.WaterSupply},
		{types.ColElectricity, &r.Electricity},
		{types.ColInternetSpeed, &r.InternetSpeed},
		{types.ColGreenery, &r.Greenery},
		{types.ColPollution, &r.Pollution},
		{types.ColLandSlope, &r.LandSlope},
		{types.ColSoilQuality, &r.SoilQuality},
		{types.ColEarthquake, &r.Earthquake},
		{types.ColPublicTransport, &r.PublicTransport},
		{types.ColPrice, &l.Price},
	}
}

func columnNames() []string {
	var l types.Listing
	fs := fields(&l)
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.name
	}
	return names
}

// value converts a field pointer to a plain driver value.
func value(ptr any) any {
	v := reflect.ValueOf(ptr).Elem()
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int:
		return v.Int()
	default:
		return v.Float()
	}
}

func (d *Database) createTableSQL() string {
	var l types.Listing
	cols := []string{"dataset_name " + d.dialect.text + " NOT NULL", "row_index " + d.dialect.int + " NOT NULL"}
	for _, f := range fields(&l) {
		var typ string
		switch reflect.ValueOf(f.ptr).Elem().Kind() {
		case reflect.String:
			typ = d.dialect.text
		case reflect.Int:
			typ = d.dialect.int
		default:
			typ = d.dialect.real
		}
		cols = append(cols, f.name+" "+typ+" NOT NULL")
	}
	cols = append(cols, "PRIMARY KEY (dataset_name, row_index)")

	create := "CREATE TABLE "
	if d.dialect.ifNotExists {
		create = "CREATE TABLE IF NOT EXISTS "
	}
	return create + table + " (\n\t" + strings.Join(cols, ",\n\t") + "\n)"
}

// EnsureSchema creates the listings table if it does not exist.
func (d *Database) EnsureSchema(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, d.createTableSQL())
	if err != nil && d.dialect.driver == "oracle" && strings.Contains(err.Error(), "ORA-00955") {
		return nil // name is already used by an existing object
	}
	if err != nil {
		return eris.Wrap(err, "database: create table")
	}
	return nil
}

// SaveDataset stores ds under name, replacing any dataset already stored
// with that name. The replacement is atomic.
func (d *Database) SaveDataset(ctx context.Context, name string, ds types.Dataset) (err error) {
	if name == "" {
		return eris.New("database: dataset name is empty")
	}
	if err := d.EnsureSchema(ctx); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "database: begin transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	ph := d.dialect.placeholder
	if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE dataset_name = "+ph(1), name); err != nil {
		return eris.Wrapf(err, "database: clear dataset %q", name)
	}

	cols := append([]string{"dataset_name", "row_index"}, columnNames()...)
	marks := make([]string, len(cols))
	for i := range marks {
		marks[i] = ph(i + 1)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return eris.Wrap(err, "database: prepare insert")
	}
	defer stmt.Close()

	for i := range ds {
		args := []any{name, int64(i)}
		for _, f := range fields(&ds[i]) {
			args = append(args, value(f.ptr))
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "database: insert row %d", i)
		}
	}

	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "database: commit")
	}
	d.log.Info("dataset stored", zap.String("dataset", name), zap.Int("rows", len(ds)))
	return nil
}

// LoadDataset returns the rows stored under name in their original order.
func (d *Database) LoadDataset(ctx context.Context, name string) (types.Dataset, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE dataset_name = %s ORDER BY row_index",
		strings.Join(columnNames(), ", "), table, d.dialect.placeholder(1))

	rows, err := d.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, eris.Wrapf(err, "database: query dataset %q", name)
	}
	defer rows.Close()

	var ds types.Dataset
	for rows.Next() {
		var l types.Listing
		fs := fields(&l)
		dest := make([]any, len(fs))
		for i, f := range fs {
			dest[i] = f.ptr
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrapf(err, "database: scan row %d", len(ds))
		}
		ds = append(ds, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "database: read rows")
	}
	if len(ds) == 0 {
		return nil, eris.Errorf("database: dataset %q not found", name)
	}
	return ds, nil
}
