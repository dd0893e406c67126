package endpoint

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"

	"github.com/julienschmidt/httprouter"

	"github.com/altheris/mysql-data-apis/datagen"
	"github.com/altheris/mysql-data-apis/db"
	"github.com/altheris/mysql-data-apis/security"
	"github.com/altheris/mysql-data-apis/types"
)

// Routes returns the HTTP routes of the endpoint rooted at the given pattern.
func (e *DataEndpoint) Routes(pattern string) []types.Route {
	return []types.Route{
		{
			Method:  http.MethodGet,
			Pattern: path.Join(pattern, "tables"),
			Handler: http.HandlerFunc(e.handleTables),
		},
		{
			Method:  http.MethodGet,
			Pattern: path.Join(pattern, "tables/:table/columns"),
			Handler: http.HandlerFunc(e.handleDescribe),
		},
		{
			Method:  http.MethodPost,
			Pattern: path.Join(pattern, "tables/:table/insert"),
			Handler: http.HandlerFunc(e.handleInsert),
		},
		{
			Method:  http.MethodPost,
			Pattern: path.Join(pattern, "tables/:table/update"),
			Handler: http.HandlerFunc(e.handleUpdate),
		},
		{
			Method:  http.MethodPost,
			Pattern: path.Join(pattern, "tables/:table/delete"),
			Handler: http.HandlerFunc(e.handleDelete),
		},
		{
			Method:  http.MethodPost,
			Pattern: path.Join(pattern, "query"),
			Handler: http.HandlerFunc(e.handleQuery),
		},
	}
}

func tableParam(r *http.Request) string {
	params := httprouter.ParamsFromContext(r.Context())
	return params.ByName("table")
}

func (e *DataEndpoint) handleTables(w http.ResponseWriter, r *http.Request) {
	tables, err := e.Tables(r.Context())
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJSON(w, map[string]interface{}{"tables": tables})
}

func (e *DataEndpoint) handleDescribe(w http.ResponseWriter, r *http.Request) {
	columns, err := e.DescribeTable(r.Context(), tableParam(r))
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJSON(w, map[string]interface{}{"columns": columns})
}

func (e *DataEndpoint) handleInsert(w http.ResponseWriter, r *http.Request) {
	cfg, err := types.DecodeValue(r.Body)
	if err != nil {
		e.writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	recordCount := 0
	if count, ok := cfg.Get("recordCount"); ok {
		if count.Kind() != types.KindInt {
			e.writeBadRequest(w, "recordCount must be an integer")
			return
		}
		recordCount = int(count.Int64())
	}

	result, err := e.Insert(r.Context(), tableParam(r), recordCount, cfg)
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJSON(w, result)
}

func (e *DataEndpoint) handleUpdate(w http.ResponseWriter, r *http.Request) {
	cfg, err := types.DecodeValue(r.Body)
	if err != nil {
		e.writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	result, err := e.Update(r.Context(), tableParam(r), cfg)
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJSON(w, result)
}

func (e *DataEndpoint) handleDelete(w http.ResponseWriter, r *http.Request) {
	cfg, err := types.DecodeValue(r.Body)
	if err != nil {
		e.writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	result, err := e.Delete(r.Context(), tableParam(r), cfg)
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJSON(w, result)
}

func (e *DataEndpoint) handleQuery(w http.ResponseWriter, r *http.Request) {
	cfg, err := types.DecodeValue(r.Body)
	if err != nil {
		e.writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	query, ok := cfg.Get("query")
	if !ok || query.Kind() != types.KindText {
		e.writeBadRequest(w, `body requires a "query" string`)
		return
	}
	result, err := e.Select(r.Context(), query.TextVal())
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJSON(w, result)
}

func (e *DataEndpoint) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		e.logger.Error("unable to encode response", "error", err)
	}
}

func (e *DataEndpoint) writeBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeError maps engine errors onto HTTP statuses: rejected requests are
// 400, disabled operations 403, tripped safety limits 409 and everything else
// a 500.
func (e *DataEndpoint) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validationErr *security.ValidationError
	var synthesisErr *datagen.SynthesisError
	var limitErr *db.SafetyLimitError
	switch {
	case errors.Is(err, ErrOperationNotSupported):
		status = http.StatusForbidden
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &synthesisErr):
		status = http.StatusBadRequest
	case errors.As(err, &limitErr):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		e.logger.Error("request failed", "error", err)
	} else {
		e.logger.Debug("request rejected", "error", err, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
