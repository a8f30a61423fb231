package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSpecs_MatchStructTags(t *testing.T) {
	typ := reflect.TypeOf(Plant{})
	require.Equal(t, typ.NumField(), len(FieldSpecs))

	for i, spec := range FieldSpecs {
		tag := strings.Split(typ.Field(i).Tag.Get("json"), ",")[0]
		assert.Equal(t, spec.Name, tag, "field %d", i)
	}
}

func TestFields_PointersAddressStruct(t *testing.T) {
	var p Plant
	fields := p.Fields()
	v := reflect.ValueOf(&p).Elem()

	for i, f := range fields {
		ptr := reflect.ValueOf(f.Ptr)
		require.Equal(t, reflect.Ptr, ptr.Kind())
		assert.Equal(t, v.Field(i).Addr().Pointer(), ptr.Pointer(), "field %s", f.Spec.Name)
	}
}

func TestPlant_Field(t *testing.T) {
	var p Plant
	f, ok := p.Field("common_name")
	require.True(t, ok)
	*(f.Ptr.(*string)) = "Fir"
	assert.Equal(t, "Fir", p.CommonName)

	_, ok = p.Field("nope")
	assert.False(t, ok)
}

func TestPlant_MarshalNullsAndEmptyLists(t *testing.T) {
	p := Plant{ID: 1, CommonName: "Fir", Sunlight: []string{}}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Len(t, out, len(FieldSpecs))
	assert.Equal(t, []any{}, out["sunlight"])
	assert.Nil(t, out["family"])
	assert.Nil(t, out["poisonous_to_pets"])
	assert.Nil(t, out["other_images"])
}

func TestToxicity_JSON(t *testing.T) {
	tests := []struct {
		in   string
		want Toxicity
	}{
		{"null", Toxicity{}},
		{"true", ToxicityBool(true)},
		{"false", ToxicityBool(false)},
		{"0", ToxicityInt(0)},
		{"1", ToxicityInt(1)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got Toxicity
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)

			out, err := json.Marshal(got)
			require.NoError(t, err)
			assert.Equal(t, tt.in, string(out))
		})
	}

	var bad Toxicity
	assert.ErrorIs(t, json.Unmarshal([]byte(`"yes"`), &bad), ErrToxicityType)
}

func TestParseToxicity(t *testing.T) {
	got, err := ParseToxicity(json.Number("1"))
	require.NoError(t, err)
	v, ok := got.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)

	got, err = ParseToxicity(false)
	require.NoError(t, err)
	b, ok := got.Bool()
	assert.True(t, ok)
	assert.False(t, b)

	_, err = ParseToxicity(1.5)
	assert.ErrorIs(t, err, ErrToxicityType)
	_, err = ParseToxicity("true")
	assert.ErrorIs(t, err, ErrToxicityType)
}

func TestNewFilter(t *testing.T) {
	f, err := NewFilter("cycle", "Perennial")
	require.NoError(t, err)
	assert.Equal(t, Filter{Column: FilterCycle, Value: "Perennial"}, f)

	f, err = NewFilter("indoor", "TRUE")
	require.NoError(t, err)
	assert.Equal(t, Filter{Column: FilterIndoor, Value: true}, f)

	_, err = NewFilter("indoor", "maybe")
	assert.Error(t, err)

	_, err = NewFilter("common_name; DROP TABLE plants", "x")
	assert.Error(t, err)
}
