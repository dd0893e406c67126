// types package contains the public API types shared between the engine,
// the endpoint and the transport layer.
package types

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/altheris/mysql-data-apis/security"
)

// Operation identifies which mutation a request performs.
type Operation int

const (
	OperationUpdate Operation = iota
	OperationDelete
)

func (op Operation) String() string {
	if op == OperationDelete {
		return "DELETE"
	}
	return "UPDATE"
}

// Connector joins a condition to the one that follows it.
const (
	ConnectorAnd = "AND"
	ConnectorOr  = "OR"
)

// Condition is a single WHERE predicate. Exactly one of Value/Values is
// populated depending on operator arity: IN and NOT IN take Values, all other
// operators take Value.
type Condition struct {
	Field     string  `json:"field" mapstructure:"field" validate:"required"`
	Operator  string  `json:"operator" mapstructure:"operator" validate:"required"`
	Value     Value   `json:"value"`
	Values    []Value `json:"values"`
	Connector string  `json:"connector" mapstructure:"connector" validate:"omitempty,oneof=AND OR"`
}

// MultiValued reports whether the condition's operator takes a value list.
func (c *Condition) MultiValued() bool {
	op := strings.ToUpper(c.Operator)
	return op == "IN" || op == "NOT IN"
}

// Validate checks the condition's field, operator, arity and value content.
func (c *Condition) Validate() error {
	if err := security.ValidateColumnName(c.Field); err != nil {
		return err
	}
	op, err := security.NormalizeOperator(c.Operator)
	if err != nil {
		return err
	}
	c.Operator = op

	if c.Connector == "" {
		c.Connector = ConnectorAnd
	}

	if c.MultiValued() {
		if len(c.Values) == 0 {
			return &security.ValidationError{
				Field:  c.Field,
				Reason: fmt.Sprintf("operator %s requires a non-empty values list", c.Operator),
			}
		}
		for _, v := range c.Values {
			if err := checkValueContent(c.Field, v); err != nil {
				return err
			}
		}
		return nil
	}

	if len(c.Values) > 0 {
		return &security.ValidationError{
			Field:  c.Field,
			Reason: fmt.Sprintf("operator %s takes a single value, not a values list", c.Operator),
		}
	}
	return checkValueContent(c.Field, c.Value)
}

// checkValueContent scans string values for injection patterns. Null and
// non-string values are always bound safely as parameters.
func checkValueContent(field string, v Value) error {
	if v.Kind() == KindText && security.ContainsInjectionPattern(v.TextVal()) {
		return &security.ValidationError{
			Field:  field,
			Reason: "value contains potentially dangerous SQL patterns",
		}
	}
	return nil
}

// Rule is one conditional mutation unit: an ordered condition list, the
// values to set (empty for delete rules) and its own affected-row ceiling.
type Rule struct {
	Conditions         []Condition `json:"conditions"`
	SetValues          []MapEntry  `json:"setValues"`
	MaxAffectedRecords int64       `json:"maxAffectedRecords" validate:"gt=0"`
	RequireConditions  bool        `json:"requireConditions"`
}

// HasConditions reports whether the rule carries at least one condition.
func (r *Rule) HasConditions() bool {
	return len(r.Conditions) > 0
}

// Validate checks the rule for the given operation. Update rules must carry
// set values; rules requiring conditions must have at least one.
func (r *Rule) Validate(op Operation) error {
	if r.RequireConditions && !r.HasConditions() {
		return &security.ValidationError{
			Reason: fmt.Sprintf("%s rules require at least one condition for safety, set requireConditions=false to bypass", op),
		}
	}
	if op == OperationUpdate && len(r.SetValues) == 0 {
		return &security.ValidationError{Reason: "update rule has no values to set"}
	}
	if r.MaxAffectedRecords <= 0 {
		return &security.ValidationError{Reason: "maxAffectedRecords must be positive"}
	}
	for i := range r.Conditions {
		if err := r.Conditions[i].Validate(); err != nil {
			return err
		}
	}
	for _, e := range r.SetValues {
		if err := security.ValidateColumnName(e.Key); err != nil {
			return err
		}
		if err := checkValueContent(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Description renders a short human-readable summary of the rule, used in
// dry-run previews and logs.
func (r *Rule) Description(op Operation) string {
	var sb strings.Builder
	sb.WriteString(op.String())
	if len(r.SetValues) > 0 {
		sb.WriteString(" set ")
		for i, e := range r.SetValues {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%s", e.Key, e.Value.String())
		}
	}
	if r.HasConditions() {
		sb.WriteString(" where ")
		for i, c := range r.Conditions {
			if i > 0 {
				fmt.Fprintf(&sb, " %s ", r.Conditions[i-1].Connector)
			}
			if c.MultiValued() {
				fmt.Fprintf(&sb, "%s %s (%d values)", c.Field, c.Operator, len(c.Values))
			} else {
				fmt.Fprintf(&sb, "%s %s %s", c.Field, c.Operator, c.Value.String())
			}
		}
	} else {
		sb.WriteString(" unconditional")
	}
	return sb.String()
}

// DefaultMaxTotalAffectedRecords caps the rows a whole mutation request may
// touch unless the caller lowers or raises it.
const DefaultMaxTotalAffectedRecords = 5000

// DefaultMaxAffectedRecordsPerRule is the per-rule ceiling applied when a
// rule does not set its own.
const DefaultMaxAffectedRecordsPerRule = 1000

// MutationRequest is a parsed update or delete request: a target table and an
// ordered list of rules executed sequentially, optionally inside one
// transaction.
type MutationRequest struct {
	Operation               Operation `json:"-"`
	TableName               string    `json:"tableName" validate:"required"`
	Rules                   []Rule    `json:"rules" validate:"min=1"`
	UseTransaction          bool      `json:"useTransaction"`
	MaxTotalAffectedRecords int64     `json:"maxTotalAffectedRecords" validate:"gt=0"`
	DryRun                  bool      `json:"dryRun"`
	ReturnDetails           bool      `json:"returnDetails"`
}

// Validate re-checks the whole request structurally and for SQL safety. The
// executor calls this again before running even when the endpoint already
// validated, so a request can never reach the database unchecked.
func (r *MutationRequest) Validate() error {
	if err := security.ValidateTableName(r.TableName); err != nil {
		return err
	}
	if len(r.Rules) == 0 {
		return &security.ValidationError{Reason: "request has no rules"}
	}
	if r.MaxTotalAffectedRecords <= 0 {
		return &security.ValidationError{Reason: "maxTotalAffectedRecords must be positive"}
	}
	for i := range r.Rules {
		if err := r.Rules[i].Validate(r.Operation); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return nil
}

// SequenceType selects how a per-column sequence produces values.
type SequenceType string

const (
	SequenceIncrement    SequenceType = "INCREMENT"
	SequenceCustomValues SequenceType = "CUSTOM_VALUES"
	SequencePattern      SequenceType = "PATTERN"
)

// SequenceDef declares a per-column value stream for generated insert rows.
type SequenceDef struct {
	Type         SequenceType `json:"type"`
	StartValue   int64        `json:"startValue"`
	Step         int64        `json:"step"`
	CustomValues []Value      `json:"customValues"`
	Pattern      string       `json:"pattern"`
	Cycle        bool         `json:"cycle"`
}

// Validate checks the definition against its type's requirements.
func (s *SequenceDef) Validate() error {
	switch s.Type {
	case SequenceIncrement:
		return nil
	case SequenceCustomValues:
		if len(s.CustomValues) == 0 {
			return &security.ValidationError{Reason: "CUSTOM_VALUES sequence requires a non-empty customValues list"}
		}
		return nil
	case SequencePattern:
		if !strings.Contains(s.Pattern, "{seq") {
			return &security.ValidationError{Reason: "PATTERN sequence requires a pattern containing a {seq} token"}
		}
		return nil
	}
	return &security.ValidationError{Reason: fmt.Sprintf("unknown sequence type %q", s.Type)}
}

// Group is a batch of insert records sharing fixed values.
type Group struct {
	RecordCount int        `json:"recordCount" validate:"gt=0"`
	FixedValues []MapEntry `json:"fixedValues"`
	Description string     `json:"description"`
}

// InsertRequest describes a generated-data insert: either a flat record
// count with optional fixed values, or ordered groups, plus per-column
// sequences shared across all groups.
type InsertRequest struct {
	TableName   string                 `json:"tableName" validate:"required"`
	RecordCount int                    `json:"recordCount" validate:"gt=0"`
	FixedValues []MapEntry             `json:"fixedValues"`
	Groups      []Group                `json:"groups"`
	Sequences   map[string]SequenceDef `json:"sequences"`
}

// TotalRecords returns the effective record count: the sum of group counts
// when groups are declared, the flat count otherwise.
func (r *InsertRequest) TotalRecords() int {
	if len(r.Groups) == 0 {
		return r.RecordCount
	}
	total := 0
	for _, g := range r.Groups {
		total += g.RecordCount
	}
	return total
}

// Validate checks the insert spec: table and column identifiers, record
// counts and sequence definitions.
func (r *InsertRequest) Validate() error {
	if err := security.ValidateTableName(r.TableName); err != nil {
		return err
	}
	if r.TotalRecords() <= 0 {
		return &security.ValidationError{Reason: "record count must be positive"}
	}
	for _, e := range r.FixedValues {
		if err := security.ValidateColumnName(e.Key); err != nil {
			return err
		}
	}
	for i, g := range r.Groups {
		if g.RecordCount <= 0 {
			return &security.ValidationError{Reason: fmt.Sprintf("group %d record count must be positive", i+1)}
		}
		for _, e := range g.FixedValues {
			if err := security.ValidateColumnName(e.Key); err != nil {
				return err
			}
		}
	}
	for column, def := range r.Sequences {
		if err := security.ValidateColumnName(column); err != nil {
			return err
		}
		if err := def.Validate(); err != nil {
			return fmt.Errorf("sequence for column %s: %w", column, err)
		}
	}
	return nil
}

// ColumnMeta describes one table column as reported by the schema catalog.
type ColumnMeta struct {
	Name          string `json:"name"`
	DataType      string `json:"dataType"`
	Size          int    `json:"size"`
	DecimalDigits int    `json:"decimalDigits"`
	Nullable      bool   `json:"nullable"`
	DefaultValue  string `json:"defaultValue"`
	AutoIncrement bool   `json:"autoIncrement"`
	PrimaryKey    bool   `json:"primaryKey"`
}

// RulePreview carries the compiled SQL of a rule when a request runs in dry
// run mode.
type RulePreview struct {
	SQL         string `json:"sql"`
	ParamCount  int    `json:"paramCount"`
	Description string `json:"description"`
}

// MutationResult reports the outcome of an update or delete request.
type MutationResult struct {
	TableName     string        `json:"tableName"`
	Operation     string        `json:"operation"`
	TotalAffected int64         `json:"totalAffected"`
	RuleAffected  []int64       `json:"ruleAffected,omitempty"`
	DryRun        bool          `json:"dryRun"`
	Previews      []RulePreview `json:"previews,omitempty"`
	Committed     bool          `json:"committed"`
}

// InsertResult reports the outcome of a generated-data insert.
type InsertResult struct {
	TableName    string `json:"tableName"`
	RowsInserted int64  `json:"rowsInserted"`
	ColumnCount  int    `json:"columnCount"`
}

// QueryResult carries validated SELECT output rows.
type QueryResult struct {
	Columns []string                 `json:"columns"`
	Values  []map[string]interface{} `json:"values"`
}

// TableMeta is a table catalog entry.
type TableMeta struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

// Route represents a request route to be served.
type Route struct {
	Method  string
	Pattern string
	Handler http.Handler
}
