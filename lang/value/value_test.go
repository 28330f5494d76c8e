package value_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
)

type noRoots struct{}

func (noRoots) Roots() []gc.Object { return nil }

func TestScalarRoundTrip(t *testing.T) {
	require.Equal(t, int64(42), value.Int(42).AsInt())
	require.Equal(t, 3.5, value.Float(3.5).AsFloat())
	require.True(t, value.Bool(true).AsBool())
	require.True(t, value.UnitValue.IsUnit())
}

func TestStringHeapValue(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	s := value.NewString(h, "hello")
	require.Equal(t, value.StringT, s.Tag())
	require.Equal(t, "hello", s.AsString())
	require.NotNil(t, s.Object())
}

func TestArrayTracesElements(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	inner := value.NewString(h, "inner")
	arr := value.NewArray(h, []value.Value{value.Int(1), inner})
	require.Equal(t, 2, len(arr.AsArray().Elems))

	var traced []gc.Object
	arr.Object().Trace(func(o gc.Object) { traced = append(traced, o) })
	require.Len(t, traced, 1)
}

func TestMapChaining(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	m := value.NewMapValue(h)
	tbl := m.AsMap()

	for i := 0; i < 100; i++ {
		tbl.Set(value.Int(int64(i)), value.Int(int64(i*i)))
	}
	require.Equal(t, 100, tbl.Len())

	v, ok := tbl.Get(value.Int(42))
	require.True(t, ok)
	require.Equal(t, int64(42*42), v.AsInt())

	require.True(t, tbl.Delete(value.Int(42)))
	_, ok = tbl.Get(value.Int(42))
	require.False(t, ok)
	require.Equal(t, 99, tbl.Len())
}

func TestMapStringKeys(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	m := value.NewMapValue(h).AsMap()
	m.Set(value.NewString(h, "a"), value.Int(1))
	m.Set(value.NewString(h, "a"), value.Int(2))
	require.Equal(t, 1, m.Len())

	v, ok := m.Get(value.NewString(h, "a"))
	require.True(t, ok)
	require.Equal(t, int64(2), v.AsInt())
}

func TestMapIntAndStringKeysCollide(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	m := value.NewMapValue(h).AsMap()
	m.Set(value.Int(1), value.NewString(h, "from int"))
	m.Set(value.NewString(h, "1"), value.NewString(h, "from string"))
	require.Equal(t, 1, m.Len())

	v, ok := m.Get(value.Int(1))
	require.True(t, ok)
	require.Equal(t, "from string", v.AsString())

	v, ok = m.Get(value.NewString(h, "1"))
	require.True(t, ok)
	require.Equal(t, "from string", v.AsString())
}

func TestDecimalValue(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	d := value.NewDecimal(h, decimal.NewFromFloat(1.5))
	require.Equal(t, value.DecimalT, d.Tag())
	require.True(t, d.AsDecimal().Equal(decimal.NewFromFloat(1.5)))
}

func TestJSONRoundTrip(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	v, err := value.ParseJSON(h, `{"a":1,"b":[true,null,"x"]}`)
	require.NoError(t, err)

	out, err := value.StringifyJSON(v)
	require.NoError(t, err)

	v2, err := value.ParseJSON(h, out)
	require.NoError(t, err)
	out2, err := value.StringifyJSON(v2)
	require.NoError(t, err)
	require.Equal(t, out, out2)
}

func TestResultValues(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	ok := value.NewOk(h, value.Int(7))
	require.True(t, ok.AsResult().Ok)
	require.Equal(t, int64(7), ok.AsResult().Value.AsInt())

	bad := value.NewErr(h, "boom")
	require.False(t, bad.AsResult().Ok)
	require.Equal(t, "boom", bad.AsResult().Err)
}

func TestCompareFloatNaN(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	require.Equal(t, 2, value.CompareFloat(nan, 1.0))
	require.Equal(t, 2, value.CompareFloat(nan, nan))
}

func TestExpectTypeError(t *testing.T) {
	err := value.Expect("add_i64", value.IntT, value.Float(1.0))
	require.Error(t, err)
	var terr *value.TypeError
	require.ErrorAs(t, err, &terr)
}
