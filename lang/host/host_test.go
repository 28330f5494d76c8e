package host_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/host"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

type noRoots struct{}

func (noRoots) Roots() []gc.Object { return nil }

func TestCryptoHashesAreDeterministic(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	tbl := host.NewTable()

	n, ok := tbl.Arity(uint32(host.OpCryptoSHA256))
	require.True(t, ok)
	require.Equal(t, 1, n)

	v1, err := tbl.Call(h, vm.IOContext{}, uint32(host.OpCryptoSHA256), []value.Value{value.NewString(h, "hello")})
	require.NoError(t, err)
	v2, err := tbl.Call(h, vm.IOContext{}, uint32(host.OpCryptoSHA256), []value.Value{value.NewString(h, "hello")})
	require.NoError(t, err)
	require.Equal(t, v1.AsString(), v2.AsString())
	require.Len(t, v1.AsString(), 64) // hex-encoded sha256 digest
}

func TestRegexMatchAndFindAll(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	tbl := host.NewTable()

	compiled, err := tbl.Call(h, vm.IOContext{}, uint32(host.OpRegexCompile), []value.Value{value.NewString(h, `\d+`)})
	require.NoError(t, err)
	require.True(t, compiled.AsResult().Ok)
	re := compiled.AsResult().Value

	matched, err := tbl.Call(h, vm.IOContext{}, uint32(host.OpRegexMatch), []value.Value{re, value.NewString(h, "a1b22c")})
	require.NoError(t, err)
	require.True(t, matched.AsResult().Value.AsBool())

	all, err := tbl.Call(h, vm.IOContext{}, uint32(host.OpRegexFindAll), []value.Value{re, value.NewString(h, "a1b22c")})
	require.NoError(t, err)
	found := all.AsResult().Value.AsArray()
	require.Len(t, found.Elems, 2)
	require.Equal(t, "1", found.Elems[0].AsString())
	require.Equal(t, "22", found.Elems[1].AsString())
}

func TestTimeSleepAndNow(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	tbl := host.NewTable()

	before, err := tbl.Call(h, vm.IOContext{}, uint32(host.OpTimeNowUnixMillis), nil)
	require.NoError(t, err)
	require.Greater(t, before.AsInt(), int64(0))

	_, err = tbl.Call(h, vm.IOContext{}, uint32(host.OpTimeSleepMillis), []value.Value{value.Int(1)})
	require.NoError(t, err)
}

func TestUnknownOpErrors(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	tbl := host.NewTable()
	_, ok := tbl.Arity(99999)
	require.False(t, ok)
	_, err := tbl.Call(h, vm.IOContext{}, 99999, nil)
	require.Error(t, err)
}

func TestProcessEnvMissing(t *testing.T) {
	h := gc.NewHeap(noRoots{})
	tbl := host.NewTable()
	v, err := tbl.Call(h, vm.IOContext{}, uint32(host.OpProcessEnv), []value.Value{value.NewString(h, "AISL_DEFINITELY_UNSET_VAR")})
	require.NoError(t, err)
	require.False(t, v.AsResult().Ok)
}
