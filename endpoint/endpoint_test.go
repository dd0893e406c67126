package endpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/altheris/mysql-data-apis/config"
	"github.com/altheris/mysql-data-apis/db"
	"github.com/altheris/mysql-data-apis/log"
	"github.com/altheris/mysql-data-apis/types"
)

func allOps() config.Operations {
	ops, _ := config.Ops("DataInsert", "DataUpdate", "DataDelete", "DataSelect", "SchemaDescribe")
	return ops
}

func newTestEndpoint(session db.Session, ops config.Operations) *DataEndpoint {
	cfg := NewEndpointConfigWithLogger(log.NewZapLogger(zap.NewNop()), "localhost").
		WithSupportedOperations(ops)
	return cfg.newEndpointWithSession(session)
}

func decode(t *testing.T, doc string) types.Value {
	t.Helper()
	v, err := types.DecodeValueString(doc)
	require.NoError(t, err)
	return v
}

func TestUpdateExecutesParsedRequest(t *testing.T) {
	sessionMock := &db.SessionMock{}
	sessionMock.On("ExecuteMutation", mock.MatchedBy(func(req *types.MutationRequest) bool {
		return req.Operation == types.OperationUpdate &&
			req.TableName == "jobs" &&
			len(req.Rules) == 1 &&
			req.UseTransaction
	})).Return(&types.MutationResult{TableName: "jobs", TotalAffected: 3, Committed: true}, nil)

	e := newTestEndpoint(sessionMock, allOps())
	result, err := e.Update(context.Background(), "jobs", decode(t, `{
		"updateRules": [{
			"conditions": [{"field": "status", "operator": "=", "value": "pending"}],
			"updateValues": {"status": "done"}
		}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.TotalAffected)
	sessionMock.AssertExpectations(t)
}

func TestUpdateRejectedWhenNotSupported(t *testing.T) {
	ops, _ := config.Ops("DataSelect")
	e := newTestEndpoint(&db.SessionMock{}, ops)

	_, err := e.Update(context.Background(), "jobs", decode(t, `{"updateRules": []}`))
	assert.ErrorIs(t, err, ErrOperationNotSupported)
}

func TestUpdateRejectedAboveOperationLimit(t *testing.T) {
	sessionMock := &db.SessionMock{}
	e := newTestEndpoint(sessionMock, allOps())

	_, err := e.Update(context.Background(), "jobs", decode(t, `{
		"maxTotalAffectedRecords": 50000,
		"updateRules": [{
			"conditions": [{"field": "id", "operator": "=", "value": 1}],
			"updateValues": {"status": "done"}
		}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the maximum")
	sessionMock.AssertNotCalled(t, "ExecuteMutation", mock.Anything)
}

func TestDeleteRejectedAboveOperationLimit(t *testing.T) {
	e := newTestEndpoint(&db.SessionMock{}, allOps())

	// The delete ceiling is lower than the request default of 5000.
	_, err := e.Delete(context.Background(), "jobs", decode(t, `{
		"deleteRules": [{"conditions": [{"field": "id", "operator": "=", "value": 1}]}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete")
}

func TestInsertGeneratesAndWritesRows(t *testing.T) {
	sessionMock := &db.SessionMock{}
	sessionMock.On("DescribeTable", "items").Return([]types.ColumnMeta{
		{Name: "id", DataType: "BIGINT", AutoIncrement: true},
		{Name: "status", DataType: "VARCHAR", Size: 16},
	}, nil)
	sessionMock.On("ExecuteInsert", "items", []string{"status"}, mock.MatchedBy(func(rows [][]interface{}) bool {
		return len(rows) == 4
	})).Return(int64(4), nil)

	e := newTestEndpoint(sessionMock, allOps())
	result, err := e.Insert(context.Background(), "items", 4, decode(t, `{"status": "active"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.RowsInserted)
	assert.Equal(t, 1, result.ColumnCount)
	sessionMock.AssertExpectations(t)
}

func TestInsertRejectedAboveOperationLimit(t *testing.T) {
	e := newTestEndpoint(&db.SessionMock{}, allOps())

	_, err := e.Insert(context.Background(), "items", config.DefaultMaxInsertRecords+1, types.Null())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert")
}

func TestSelectDelegatesWithRowLimit(t *testing.T) {
	sessionMock := &db.SessionMock{}
	sessionMock.On("ExecuteSelect", "SELECT id FROM users", DefaultSelectRowLimit).
		Return(&types.QueryResult{Columns: []string{"id"}}, nil)

	e := newTestEndpoint(sessionMock, allOps())
	result, err := e.Select(context.Background(), "SELECT id FROM users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, result.Columns)
	sessionMock.AssertExpectations(t)
}

func newTestRouter(e *DataEndpoint) *httprouter.Router {
	router := httprouter.New()
	for _, route := range e.Routes("/") {
		router.Handler(route.Method, route.Pattern, route.Handler)
	}
	return router
}

func TestRoutesTables(t *testing.T) {
	sessionMock := &db.SessionMock{}
	sessionMock.On("Tables").Return([]types.TableMeta{{Name: "users"}}, nil)

	router := newTestRouter(newTestEndpoint(sessionMock, allOps()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tables", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"users"`)
}

func TestRoutesUpdateBadJSON(t *testing.T) {
	router := newTestRouter(newTestEndpoint(&db.SessionMock{}, allOps()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tables/jobs/update", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutesDeleteForbiddenWhenNotSupported(t *testing.T) {
	ops, _ := config.Ops("DataSelect")
	router := newTestRouter(newTestEndpoint(&db.SessionMock{}, ops))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tables/jobs/delete",
		strings.NewReader(`{"deleteRules": [{"conditions": [{"field": "id", "operator": "=", "value": 1}]}]}`)))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoutesUpdateSafetyLimitConflict(t *testing.T) {
	sessionMock := &db.SessionMock{}
	sessionMock.On("ExecuteMutation", mock.Anything).
		Return(nil, &db.SafetyLimitError{RuleIndex: 0, Affected: 12, Limit: 10})

	router := newTestRouter(newTestEndpoint(sessionMock, allOps()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tables/jobs/update",
		strings.NewReader(`{"updateRules": [{
			"conditions": [{"field": "id", "operator": "=", "value": 1}],
			"updateValues": {"status": "done"}
		}]}`)))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "exceeding its limit")
}

func TestRoutesQuery(t *testing.T) {
	sessionMock := &db.SessionMock{}
	sessionMock.On("ExecuteSelect", "SELECT 1", DefaultSelectRowLimit).
		Return(&types.QueryResult{Columns: []string{"1"}}, nil)

	router := newTestRouter(newTestEndpoint(sessionMock, allOps()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/query",
		strings.NewReader(`{"query": "SELECT 1"}`)))

	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutesInsertSynthesisFailureIsBadRequest(t *testing.T) {
	sessionMock := &db.SessionMock{}
	// Only an auto-increment column, so no row values can be generated.
	sessionMock.On("DescribeTable", "counters").Return([]types.ColumnMeta{
		{Name: "id", DataType: "BIGINT", AutoIncrement: true, PrimaryKey: true},
	}, nil)

	router := newTestRouter(newTestEndpoint(sessionMock, allOps()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tables/counters/insert",
		strings.NewReader(`{"recordCount": 1}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cannot generate value")
}

func TestRoutesInsert(t *testing.T) {
	sessionMock := &db.SessionMock{}
	sessionMock.On("DescribeTable", "items").Return([]types.ColumnMeta{
		{Name: "status", DataType: "VARCHAR", Size: 16},
	}, nil)
	sessionMock.On("ExecuteInsert", "items", []string{"status"}, mock.MatchedBy(func(rows [][]interface{}) bool {
		return len(rows) == 2
	})).Return(int64(2), nil)

	router := newTestRouter(newTestEndpoint(sessionMock, allOps()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tables/items/insert",
		strings.NewReader(`{"recordCount": 2, "status": "active"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rowsInserted":2`)
	sessionMock.AssertExpectations(t)
}
