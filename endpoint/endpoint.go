package endpoint

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/altheris/mysql-data-apis/config"
	"github.com/altheris/mysql-data-apis/datagen"
	"github.com/altheris/mysql-data-apis/db"
	"github.com/altheris/mysql-data-apis/log"
	"github.com/altheris/mysql-data-apis/types"
)

// DefaultSelectRowLimit bounds validated SELECT queries that carry no LIMIT
// of their own.
const DefaultSelectRowLimit = 1000

// ErrOperationNotSupported is returned when a request names an operation the
// endpoint was not configured to allow.
var ErrOperationNotSupported = errors.New("operation not supported by this endpoint")

type DataEndpointConfig struct {
	dbHost         string
	dbPort         int
	dbUsername     string
	dbPassword     string
	dbName         string
	supportedOps   config.Operations
	limits         config.Limits
	selectRowLimit int
	logger         log.Logger
}

func (cfg DataEndpointConfig) SupportedOperations() config.Operations {
	return cfg.supportedOps
}

func (cfg DataEndpointConfig) Limits() config.Limits {
	return cfg.limits
}

func (cfg DataEndpointConfig) Logger() log.Logger {
	return cfg.logger
}

func (cfg *DataEndpointConfig) WithDbPort(dbPort int) *DataEndpointConfig {
	cfg.dbPort = dbPort
	return cfg
}

func (cfg *DataEndpointConfig) WithDbUsername(dbUsername string) *DataEndpointConfig {
	cfg.dbUsername = dbUsername
	return cfg
}

func (cfg *DataEndpointConfig) WithDbPassword(dbPassword string) *DataEndpointConfig {
	cfg.dbPassword = dbPassword
	return cfg
}

func (cfg *DataEndpointConfig) WithDbName(dbName string) *DataEndpointConfig {
	cfg.dbName = dbName
	return cfg
}

func (cfg *DataEndpointConfig) WithSupportedOperations(supportedOps config.Operations) *DataEndpointConfig {
	cfg.supportedOps = supportedOps
	return cfg
}

func (cfg *DataEndpointConfig) WithLimits(limits config.Limits) *DataEndpointConfig {
	cfg.limits = limits
	return cfg
}

func (cfg *DataEndpointConfig) WithSelectRowLimit(limit int) *DataEndpointConfig {
	cfg.selectRowLimit = limit
	return cfg
}

func (cfg DataEndpointConfig) NewEndpoint(ctx context.Context) (*DataEndpoint, error) {
	dbClient, err := db.NewDb(ctx, db.Config{
		Host:     cfg.dbHost,
		Port:     cfg.dbPort,
		Username: cfg.dbUsername,
		Password: cfg.dbPassword,
		Database: cfg.dbName,
	}, cfg.logger)
	if err != nil {
		return nil, err
	}
	return cfg.newEndpointWithSession(dbClient), nil
}

func (cfg DataEndpointConfig) newEndpointWithSession(session db.Session) *DataEndpoint {
	return &DataEndpoint{
		session:        session,
		generator:      datagen.NewGenerator(session, cfg.logger),
		supportedOps:   cfg.supportedOps,
		limits:         cfg.limits,
		selectRowLimit: cfg.selectRowLimit,
		logger:         cfg.logger,
	}
}

func NewEndpointConfig(host string) (*DataEndpointConfig, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewEndpointConfigWithLogger(log.NewZapLogger(logger), host), nil
}

func NewEndpointConfigWithLogger(logger log.Logger, host string) *DataEndpointConfig {
	return &DataEndpointConfig{
		dbHost:         host,
		dbPort:         3306,
		limits:         config.DefaultLimits(),
		selectRowLimit: DefaultSelectRowLimit,
		logger:         logger,
	}
}

// DataEndpoint exposes safe mutation, data synthesis and schema inspection
// over one database session, gated by the configured operation mask.
type DataEndpoint struct {
	session        db.Session
	generator      *datagen.Generator
	supportedOps   config.Operations
	limits         config.Limits
	selectRowLimit int
	logger         log.Logger
}

// Update parses and runs a conditional update request against a table.
func (e *DataEndpoint) Update(ctx context.Context, tableName string, cfg types.Value) (*types.MutationResult, error) {
	if !e.supportedOps.IsSupported(config.DataUpdate) {
		return nil, fmt.Errorf("%w: update", ErrOperationNotSupported)
	}
	req, err := types.ParseMutationRequest(types.OperationUpdate, tableName, cfg)
	if err != nil {
		return nil, err
	}
	if err := e.limits.CheckUpdate(req.MaxTotalAffectedRecords); err != nil {
		return nil, err
	}
	return e.session.ExecuteMutation(ctx, req)
}

// Delete parses and runs a conditional delete request against a table.
func (e *DataEndpoint) Delete(ctx context.Context, tableName string, cfg types.Value) (*types.MutationResult, error) {
	if !e.supportedOps.IsSupported(config.DataDelete) {
		return nil, fmt.Errorf("%w: delete", ErrOperationNotSupported)
	}
	req, err := types.ParseMutationRequest(types.OperationDelete, tableName, cfg)
	if err != nil {
		return nil, err
	}
	if err := e.limits.CheckDelete(req.MaxTotalAffectedRecords); err != nil {
		return nil, err
	}
	return e.session.ExecuteMutation(ctx, req)
}

// Insert generates recordCount rows for a table, honoring fixed values,
// groups and sequences from the configuration document, and writes them in
// one batch.
func (e *DataEndpoint) Insert(ctx context.Context, tableName string, recordCount int, cfg types.Value) (*types.InsertResult, error) {
	if !e.supportedOps.IsSupported(config.DataInsert) {
		return nil, fmt.Errorf("%w: insert", ErrOperationNotSupported)
	}
	req, err := types.ParseInsertRequest(tableName, recordCount, cfg)
	if err != nil {
		return nil, err
	}
	if err := e.limits.CheckInsert(req.TotalRecords()); err != nil {
		return nil, err
	}

	columns, rows, err := e.generator.BuildRows(ctx, req)
	if err != nil {
		return nil, err
	}
	inserted, err := e.session.ExecuteInsert(ctx, req.TableName, columns, rows)
	if err != nil {
		return nil, err
	}
	return &types.InsertResult{
		TableName:    req.TableName,
		RowsInserted: inserted,
		ColumnCount:  len(columns),
	}, nil
}

// Select validates and runs a read-only query.
func (e *DataEndpoint) Select(ctx context.Context, query string) (*types.QueryResult, error) {
	if !e.supportedOps.IsSupported(config.DataSelect) {
		return nil, fmt.Errorf("%w: select", ErrOperationNotSupported)
	}
	return e.session.ExecuteSelect(ctx, query, e.selectRowLimit)
}

// DescribeTable returns the column catalog of one table.
func (e *DataEndpoint) DescribeTable(ctx context.Context, tableName string) ([]types.ColumnMeta, error) {
	if !e.supportedOps.IsSupported(config.SchemaDescribe) {
		return nil, fmt.Errorf("%w: describe", ErrOperationNotSupported)
	}
	return e.session.DescribeTable(ctx, tableName)
}

// Tables lists the base tables of the connected database.
func (e *DataEndpoint) Tables(ctx context.Context) ([]types.TableMeta, error) {
	if !e.supportedOps.IsSupported(config.SchemaDescribe) {
		return nil, fmt.Errorf("%w: describe", ErrOperationNotSupported)
	}
	return e.session.Tables(ctx)
}
