package db

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/altheris/mysql-data-apis/types"
)

type SessionMock struct {
	mock.Mock
}

func (o *SessionMock) ExecuteMutation(ctx context.Context, req *types.MutationRequest) (*types.MutationResult, error) {
	args := o.Called(req)
	if result := args.Get(0); result != nil {
		return result.(*types.MutationResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (o *SessionMock) ExecuteInsert(ctx context.Context, tableName string, columns []string, rows [][]interface{}) (int64, error) {
	args := o.Called(tableName, columns, rows)
	return args.Get(0).(int64), args.Error(1)
}

func (o *SessionMock) ExecuteSelect(ctx context.Context, query string, limit int) (*types.QueryResult, error) {
	args := o.Called(query, limit)
	if result := args.Get(0); result != nil {
		return result.(*types.QueryResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (o *SessionMock) DescribeTable(ctx context.Context, tableName string) ([]types.ColumnMeta, error) {
	args := o.Called(tableName)
	if columns := args.Get(0); columns != nil {
		return columns.([]types.ColumnMeta), args.Error(1)
	}
	return nil, args.Error(1)
}

func (o *SessionMock) ColumnDomain(ctx context.Context, tableName string, columnName string) (string, error) {
	args := o.Called(tableName, columnName)
	return args.String(0), args.Error(1)
}

func (o *SessionMock) Tables(ctx context.Context) ([]types.TableMeta, error) {
	args := o.Called()
	if tables := args.Get(0); tables != nil {
		return tables.([]types.TableMeta), args.Error(1)
	}
	return nil, args.Error(1)
}
