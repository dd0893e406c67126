package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/mitchellh/mapstructure"

	"github.com/altheris/mysql-data-apis/security"
)

var validate = validator.New()

// mutationSettings are the request-level flags decoded from the untrusted
// configuration map. Pointers distinguish "absent" from zero values so that
// defaults can be applied.
type mutationSettings struct {
	UseTransaction          *bool  `mapstructure:"useTransaction"`
	MaxTotalAffectedRecords *int64 `mapstructure:"maxTotalAffectedRecords"`
	DryRun                  *bool  `mapstructure:"dryRun"`
	ReturnDetails           *bool  `mapstructure:"returnDetails"`
}

func decodeSettings(cfg Value) (*mutationSettings, error) {
	settings := &mutationSettings{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           settings,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(cfg.Interface()); err != nil {
		return nil, &security.ValidationError{Reason: fmt.Sprintf("invalid request settings: %v", err)}
	}
	return settings, nil
}

// ParseMutationRequest builds a validated update or delete request from a
// decoded configuration document. The rules list key depends on the
// operation: "updateRules" or "deleteRules".
func ParseMutationRequest(op Operation, tableName string, cfg Value) (*MutationRequest, error) {
	if cfg.Kind() != KindMap {
		return nil, &security.ValidationError{Reason: "request configuration must be a JSON object"}
	}

	settings, err := decodeSettings(cfg)
	if err != nil {
		return nil, err
	}

	req := &MutationRequest{
		Operation:               op,
		TableName:               strings.TrimSpace(tableName),
		UseTransaction:          true,
		MaxTotalAffectedRecords: DefaultMaxTotalAffectedRecords,
		ReturnDetails:           true,
	}
	if settings.UseTransaction != nil {
		req.UseTransaction = *settings.UseTransaction
	}
	if settings.MaxTotalAffectedRecords != nil {
		req.MaxTotalAffectedRecords = *settings.MaxTotalAffectedRecords
	}
	if settings.DryRun != nil {
		req.DryRun = *settings.DryRun
	}
	if settings.ReturnDetails != nil {
		req.ReturnDetails = *settings.ReturnDetails
	}

	rulesKey := "updateRules"
	if op == OperationDelete {
		rulesKey = "deleteRules"
	}
	rulesVal, ok := cfg.Get(rulesKey)
	if !ok || rulesVal.Kind() != KindList {
		return nil, &security.ValidationError{Reason: fmt.Sprintf("request requires a %q list", rulesKey)}
	}

	for i, ruleVal := range rulesVal.Items() {
		rule, err := parseRule(op, ruleVal)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		req.Rules = append(req.Rules, *rule)
	}

	if err := validate.Struct(req); err != nil {
		return nil, &security.ValidationError{Reason: fmt.Sprintf("request failed validation: %v", err)}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func parseRule(op Operation, ruleVal Value) (*Rule, error) {
	if ruleVal.Kind() != KindMap {
		return nil, &security.ValidationError{Reason: "rule must be a JSON object"}
	}

	rule := &Rule{
		MaxAffectedRecords: DefaultMaxAffectedRecordsPerRule,
		RequireConditions:  true,
	}

	if conditions, ok := ruleVal.Get("conditions"); ok {
		if conditions.Kind() != KindList {
			return nil, &security.ValidationError{Reason: "conditions must be a JSON array"}
		}
		for i, condVal := range conditions.Items() {
			cond, err := parseCondition(condVal)
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", i+1, err)
			}
			rule.Conditions = append(rule.Conditions, *cond)
		}
	}

	if op == OperationUpdate {
		setValues, ok := ruleVal.Get("updateValues")
		if !ok || setValues.Kind() != KindMap {
			return nil, &security.ValidationError{Reason: "update rule requires an updateValues object"}
		}
		rule.SetValues = setValues.Entries()
	}

	if maxAffected, ok := ruleVal.Get("maxAffectedRecords"); ok {
		n, ok := intValue(maxAffected)
		if !ok {
			return nil, &security.ValidationError{Reason: "maxAffectedRecords must be an integer"}
		}
		rule.MaxAffectedRecords = n
	}
	if require, ok := ruleVal.Get("requireConditions"); ok {
		if require.Kind() != KindBool {
			return nil, &security.ValidationError{Reason: "requireConditions must be a boolean"}
		}
		rule.RequireConditions = require.BoolVal()
	}

	return rule, nil
}

func parseCondition(condVal Value) (*Condition, error) {
	if condVal.Kind() != KindMap {
		return nil, &security.ValidationError{Reason: "condition must be a JSON object"}
	}

	cond := &Condition{Connector: ConnectorAnd}
	if field, ok := condVal.Get("field"); ok && field.Kind() == KindText {
		cond.Field = field.TextVal()
	}
	if operator, ok := condVal.Get("operator"); ok && operator.Kind() == KindText {
		cond.Operator = operator.TextVal()
	}
	if connector, ok := condVal.Get("connector"); ok && connector.Kind() == KindText {
		cond.Connector = strings.ToUpper(strings.TrimSpace(connector.TextVal()))
	}
	if value, ok := condVal.Get("value"); ok {
		cond.Value = value
	}
	if values, ok := condVal.Get("values"); ok {
		if values.Kind() != KindList {
			return nil, &security.ValidationError{Field: cond.Field, Reason: "values must be a JSON array"}
		}
		cond.Values = values.Items()
	}

	if err := validate.Struct(cond); err != nil {
		return nil, &security.ValidationError{Reason: fmt.Sprintf("condition failed validation: %v", err)}
	}
	return cond, nil
}

// ParseInsertRequest builds a validated insert spec from a decoded
// configuration document. A document carrying "groups" or "sequences" keys is
// treated as an enhanced spec; any other object is a plain fixed-values map
// applied to every generated record.
func ParseInsertRequest(tableName string, recordCount int, cfg Value) (*InsertRequest, error) {
	req := &InsertRequest{
		TableName:   strings.TrimSpace(tableName),
		RecordCount: recordCount,
		Sequences:   map[string]SequenceDef{},
	}
	if req.RecordCount <= 0 {
		req.RecordCount = 1
	}

	if cfg.Kind() == KindNull {
		return finishInsertRequest(req)
	}
	if cfg.Kind() != KindMap {
		return nil, &security.ValidationError{Reason: "insert configuration must be a JSON object"}
	}

	if groups, ok := cfg.Get("groups"); ok {
		if groups.Kind() != KindList {
			return nil, &security.ValidationError{Reason: "groups must be a JSON array"}
		}
		for i, groupVal := range groups.Items() {
			group, err := parseGroup(groupVal)
			if err != nil {
				return nil, fmt.Errorf("group %d: %w", i+1, err)
			}
			req.Groups = append(req.Groups, *group)
		}
	}

	if sequences, ok := cfg.Get("sequences"); ok {
		if sequences.Kind() != KindMap {
			return nil, &security.ValidationError{Reason: "sequences must be a JSON object keyed by column name"}
		}
		for _, entry := range sequences.Entries() {
			def, err := parseSequenceDef(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("sequence %s: %w", entry.Key, err)
			}
			req.Sequences[entry.Key] = *def
		}
	}

	// Anything else at the top level is a fixed value applied to all rows.
	for _, entry := range cfg.Entries() {
		if entry.Key == "groups" || entry.Key == "sequences" || entry.Key == "recordCount" {
			continue
		}
		req.FixedValues = append(req.FixedValues, entry)
	}

	return finishInsertRequest(req)
}

func finishInsertRequest(req *InsertRequest) (*InsertRequest, error) {
	if err := validate.Struct(req); err != nil {
		return nil, &security.ValidationError{Reason: fmt.Sprintf("insert request failed validation: %v", err)}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func parseGroup(groupVal Value) (*Group, error) {
	if groupVal.Kind() != KindMap {
		return nil, &security.ValidationError{Reason: "group must be a JSON object"}
	}
	group := &Group{}
	if count, ok := groupVal.Get("recordCount"); ok {
		n, ok := intValue(count)
		if !ok {
			return nil, &security.ValidationError{Reason: "recordCount must be an integer"}
		}
		group.RecordCount = int(n)
	}
	if fixed, ok := groupVal.Get("fixedValues"); ok {
		if fixed.Kind() != KindMap {
			return nil, &security.ValidationError{Reason: "fixedValues must be a JSON object"}
		}
		group.FixedValues = fixed.Entries()
	}
	if desc, ok := groupVal.Get("description"); ok && desc.Kind() == KindText {
		group.Description = desc.TextVal()
	}
	return group, nil
}

func parseSequenceDef(seqVal Value) (*SequenceDef, error) {
	if seqVal.Kind() != KindMap {
		return nil, &security.ValidationError{Reason: "sequence definition must be a JSON object"}
	}

	def := &SequenceDef{StartValue: 1, Step: 1}
	if typeVal, ok := seqVal.Get("type"); ok && typeVal.Kind() == KindText {
		// Accept relaxed spellings such as "increment" or "customValues".
		def.Type = SequenceType(strcase.ToScreamingSnake(typeVal.TextVal()))
	}
	if start, ok := seqVal.Get("startValue"); ok {
		n, ok := intValue(start)
		if !ok {
			return nil, &security.ValidationError{Reason: "startValue must be an integer"}
		}
		def.StartValue = n
	}
	if step, ok := seqVal.Get("step"); ok {
		n, ok := intValue(step)
		if !ok {
			return nil, &security.ValidationError{Reason: "step must be an integer"}
		}
		def.Step = n
	}
	if custom, ok := seqVal.Get("customValues"); ok {
		if custom.Kind() != KindList {
			return nil, &security.ValidationError{Reason: "customValues must be a JSON array"}
		}
		def.CustomValues = custom.Items()
	}
	if pattern, ok := seqVal.Get("pattern"); ok && pattern.Kind() == KindText {
		def.Pattern = pattern.TextVal()
	}
	if cycle, ok := seqVal.Get("cycle"); ok && cycle.Kind() == KindBool {
		def.Cycle = cycle.BoolVal()
	}
	return def, nil
}

func intValue(v Value) (int64, bool) {
	switch v.Kind() {
	case KindInt:
		return v.Int64(), true
	case KindFloat:
		f := v.Float64()
		if f == float64(int64(f)) {
			return int64(f), true
		}
	}
	return 0, false
}
