package config

import (
	"fmt"
)

// Operations is a bitmask of the data operations the endpoint is allowed to
// perform.
type Operations int

const (
	DataInsert Operations = 1 << iota
	DataUpdate
	DataDelete
	DataSelect
	SchemaDescribe
)

// Ops builds an operation mask from operation names.
func Ops(ops ...string) (Operations, error) {
	var o Operations
	err := o.Add(ops...)
	return o, err
}

func (o *Operations) Set(ops Operations)             { *o |= ops }
func (o *Operations) Clear(ops Operations)           { *o &= ^ops }
func (o Operations) IsSupported(ops Operations) bool { return o&ops != 0 }

func (o *Operations) Add(ops ...string) error {
	for _, op := range ops {
		switch op {
		case "DataInsert":
			o.Set(DataInsert)
		case "DataUpdate":
			o.Set(DataUpdate)
		case "DataDelete":
			o.Set(DataDelete)
		case "DataSelect":
			o.Set(DataSelect)
		case "SchemaDescribe":
			o.Set(SchemaDescribe)
		default:
			return fmt.Errorf("invalid operation: %s", op)
		}
	}
	return nil
}

// Default per-operation record ceilings.
const (
	DefaultMaxInsertRecords = 10000
	DefaultMaxUpdateRecords = 5000
	DefaultMaxDeleteRecords = 1000
)

// Limits caps how many records a single request may insert or touch, per
// operation.
type Limits struct {
	MaxInsertRecords int
	MaxUpdateRecords int64
	MaxDeleteRecords int64
}

// DefaultLimits returns the stock per-operation record ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxInsertRecords: DefaultMaxInsertRecords,
		MaxUpdateRecords: DefaultMaxUpdateRecords,
		MaxDeleteRecords: DefaultMaxDeleteRecords,
	}
}

// CheckInsert reports an error when a request would insert more records than
// the configured ceiling.
func (l Limits) CheckInsert(count int) error {
	if count > l.MaxInsertRecords {
		return fmt.Errorf("record count %d exceeds the maximum of %d for insert operations", count, l.MaxInsertRecords)
	}
	return nil
}

// CheckUpdate reports an error when a request's affected-record ceiling is
// above the configured maximum for updates.
func (l Limits) CheckUpdate(maxAffected int64) error {
	if maxAffected > l.MaxUpdateRecords {
		return fmt.Errorf("maxTotalAffectedRecords %d exceeds the maximum of %d for update operations", maxAffected, l.MaxUpdateRecords)
	}
	return nil
}

// CheckDelete reports an error when a request's affected-record ceiling is
// above the configured maximum for deletes.
func (l Limits) CheckDelete(maxAffected int64) error {
	if maxAffected > l.MaxDeleteRecords {
		return fmt.Errorf("maxTotalAffectedRecords %d exceeds the maximum of %d for delete operations", maxAffected, l.MaxDeleteRecords)
	}
	return nil
}
