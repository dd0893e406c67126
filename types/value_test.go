package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValuePreservesObjectOrder(t *testing.T) {
	v, err := DecodeValueString(`{"zeta": 1, "alpha": 2, "mid": {"b": 1, "a": 2}}`)
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind())

	keys := make([]string, 0, len(v.Entries()))
	for _, e := range v.Entries() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)

	mid, ok := v.Get("mid")
	require.True(t, ok)
	assert.Equal(t, "b", mid.Entries()[0].Key)
	assert.Equal(t, "a", mid.Entries()[1].Key)
}

func TestDecodeValueNumbers(t *testing.T) {
	v, err := DecodeValueString(`{"big": 9007199254740993, "small": 42, "pi": 3.14, "exp": 1e3}`)
	require.NoError(t, err)

	big, _ := v.Get("big")
	assert.Equal(t, KindInt, big.Kind())
	assert.Equal(t, int64(9007199254740993), big.Int64())

	small, _ := v.Get("small")
	assert.Equal(t, KindInt, small.Kind())

	pi, _ := v.Get("pi")
	assert.Equal(t, KindFloat, pi.Kind())
	assert.InDelta(t, 3.14, pi.Float64(), 1e-9)

	exp, _ := v.Get("exp")
	assert.Equal(t, KindFloat, exp.Kind())
}

func TestDecodeValueScalarsAndArrays(t *testing.T) {
	v, err := DecodeValueString(`[null, true, "text", [1, 2]]`)
	require.NoError(t, err)
	require.Equal(t, KindList, v.Kind())
	require.Len(t, v.Items(), 4)

	assert.True(t, v.Items()[0].IsNull())
	assert.Equal(t, KindBool, v.Items()[1].Kind())
	assert.Equal(t, "text", v.Items()[2].TextVal())
	assert.Equal(t, KindList, v.Items()[3].Kind())
}

func TestDecodeValueRejectsTrailingContent(t *testing.T) {
	_, err := DecodeValueString(`{"a": 1} {"b": 2}`)
	assert.Error(t, err)
}

func TestMarshalRoundTripKeepsOrder(t *testing.T) {
	doc := `{"name":"x","status":"active","nested":{"z":1,"a":[true,null]}}`
	v, err := DecodeValueString(doc)
	require.NoError(t, err)

	data, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
}

func TestParam(t *testing.T) {
	assert.Nil(t, Null().Param())
	assert.Equal(t, int64(7), Int(7).Param())
	assert.Equal(t, 2.5, Float(2.5).Param())
	assert.Equal(t, true, Bool(true).Param())
	assert.Equal(t, "abc", Text("abc").Param())

	list := List(Int(1), Text("two"))
	assert.Equal(t, `[1,"two"]`, list.Param())

	m := Map(MapEntry{Key: "k", Value: Int(1)})
	assert.Equal(t, `{"k":1}`, m.Param())
}

func TestFromInterface(t *testing.T) {
	assert.Equal(t, KindNull, FromInterface(nil).Kind())
	assert.Equal(t, int64(3), FromInterface(3).Int64())
	assert.Equal(t, KindText, FromInterface("s").Kind())
	assert.Equal(t, KindList, FromInterface([]interface{}{1, "a"}).Kind())
	assert.Equal(t, KindMap, FromInterface(map[string]interface{}{"a": 1}).Kind())
}
