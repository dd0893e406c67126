package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationsSetAndClear(t *testing.T) {
	var op Operations

	assert.Equal(t, op, Operations(0))
	assert.False(t, op.IsSupported(DataInsert))

	op.Set(DataInsert | DataDelete)
	assert.True(t, op.IsSupported(DataInsert))
	assert.True(t, op.IsSupported(DataDelete))

	op.Clear(DataInsert)
	assert.False(t, op.IsSupported(DataInsert))
	assert.True(t, op.IsSupported(DataDelete))
}

func TestOperationsAdd(t *testing.T) {
	op, err := Ops("DataInsert", "DataUpdate", "DataDelete", "DataSelect", "SchemaDescribe")
	assert.NoError(t, err)
	assert.True(t, op.IsSupported(DataInsert))
	assert.True(t, op.IsSupported(DataUpdate))
	assert.True(t, op.IsSupported(DataDelete))
	assert.True(t, op.IsSupported(DataSelect))
	assert.True(t, op.IsSupported(SchemaDescribe))

	_, err = Ops("TableDrop")
	assert.Error(t, err)
}

func TestLimits(t *testing.T) {
	limits := DefaultLimits()

	assert.NoError(t, limits.CheckInsert(DefaultMaxInsertRecords))
	assert.Error(t, limits.CheckInsert(DefaultMaxInsertRecords+1))

	assert.NoError(t, limits.CheckUpdate(DefaultMaxUpdateRecords))
	assert.Error(t, limits.CheckUpdate(DefaultMaxUpdateRecords+1))

	assert.NoError(t, limits.CheckDelete(DefaultMaxDeleteRecords))
	assert.Error(t, limits.CheckDelete(DefaultMaxDeleteRecords+1))
}
