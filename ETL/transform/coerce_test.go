package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/et_dwh_sync/ETL/schema"
)

func TestCoerceValueNil(t *testing.T) {
	v, ok := coerceValue(nil, schema.TypeInt)
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestCoerceInt(t *testing.T) {
	// JSON отдает числа как float64
	v, ok := coerceValue(float64(42), schema.TypeInt)
	require.True(t, ok)
	assert.Equal(t, int64(42), v)

	v, ok = coerceValue("17", schema.TypeInt)
	require.True(t, ok)
	assert.Equal(t, int64(17), v)

	v, ok = coerceValue("", schema.TypeInt)
	require.True(t, ok)
	assert.Nil(t, v)

	v, ok = coerceValue(true, schema.TypeInt)
	require.True(t, ok)
	assert.Equal(t, int64(1), v)

	_, ok = coerceValue("abc", schema.TypeInt)
	assert.False(t, ok)
}

func TestCoerceBool(t *testing.T) {
	v, ok := coerceValue(float64(1), schema.TypeBool)
	require.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = coerceValue("false", schema.TypeBool)
	require.True(t, ok)
	assert.Equal(t, false, v)
}

func TestCoerceTimeLayouts(t *testing.T) {
	expected := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)

	for _, s := range []string{
		"2026-03-01T12:30:45Z",
		"2026-03-01T12:30:45.123456",
		"2026-03-01T12:30:45",
		"2026-03-01 12:30:45",
	} {
		v, ok := coerceValue(s, schema.TypeDateTime)
		require.True(t, ok, s)
		assert.Equal(t, expected, v, s)
	}

	v, ok := coerceValue("2026-03-01", schema.TypeDateTime)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), v)
}

func TestCoerceTimeClampsBelowMinimum(t *testing.T) {
	// ET отдает '0001-01-01T00:00:00' как значение по умолчанию
	v, ok := coerceValue("0001-01-01T00:00:00", schema.TypeDateTime)
	require.True(t, ok)
	assert.Equal(t, minDBTime, v)
}

func TestCoerceTimeRejectsGarbage(t *testing.T) {
	_, ok := coerceValue("вчера", schema.TypeDateTime)
	assert.False(t, ok)
}

func TestCoerceJSONSerializesNestedObjects(t *testing.T) {
	v, ok := coerceValue(map[string]interface{}{"agent": 0.35}, schema.TypeJSON)
	require.True(t, ok)
	assert.JSONEq(t, `{"agent": 0.35}`, v.(string))
}

func TestCoerceUUID(t *testing.T) {
	v, ok := coerceValue("AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE", schema.TypeUUID)
	require.True(t, ok)
	assert.Equal(t, "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", v)

	_, ok = coerceValue("не uuid", schema.TypeUUID)
	assert.False(t, ok)

	v, ok = coerceValue("", schema.TypeUUID)
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestCoerceString(t *testing.T) {
	v, ok := coerceValue(float64(3.5), schema.TypeString)
	require.True(t, ok)
	assert.Equal(t, "3.5", v)
}
