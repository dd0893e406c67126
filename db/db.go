package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/altheris/mysql-data-apis/log"
	"github.com/altheris/mysql-data-apis/types"
)

// Conn is the part of *sql.DB the engine uses. Tests substitute a sqlmock
// connection through WrapConn.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Session is the engine surface the endpoint talks to.
type Session interface {
	ExecuteMutation(ctx context.Context, req *types.MutationRequest) (*types.MutationResult, error)
	ExecuteInsert(ctx context.Context, tableName string, columns []string, rows [][]interface{}) (int64, error)
	ExecuteSelect(ctx context.Context, query string, limit int) (*types.QueryResult, error)
	DescribeTable(ctx context.Context, tableName string) ([]types.ColumnMeta, error)
	ColumnDomain(ctx context.Context, tableName string, columnName string) (string, error)
	Tables(ctx context.Context) ([]types.TableMeta, error)
}

// Config holds the database connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// DSN renders the connection settings as a driver DSN. parseTime makes the
// driver return time.Time for date and time columns.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Db represents a connection to a MySQL database.
type Db struct {
	conn    Conn
	dbName  string
	logger  log.Logger
	dialect Dialect
}

// NewDb opens a connection pool for the given settings and verifies it with a
// ping.
func NewDb(ctx context.Context, cfg Config, logger log.Logger) (*Db, error) {
	pool, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database %s at %s:%d: %w", cfg.Database, cfg.Host, cfg.Port, err)
	}
	return &Db{
		conn:    pool,
		dbName:  cfg.Database,
		logger:  logger,
		dialect: MySQLDialect{},
	}, nil
}

// WrapConn builds a Db over an existing connection. Used by tests.
func WrapConn(conn Conn, dbName string, logger log.Logger) *Db {
	return &Db{
		conn:    conn,
		dbName:  dbName,
		logger:  logger,
		dialect: MySQLDialect{},
	}
}

// Close releases the underlying connection pool.
func (db *Db) Close() error {
	return db.conn.Close()
}
