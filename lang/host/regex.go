package host

import (
	"github.com/dlclark/regexp2"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

// regexp2 backs AISL's regex host ops rather than stdlib regexp because
// spec.md's regex builtins need backreferences and lookaround, which
// regexp/RE2 deliberately does not support.

func regexCompile(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	re, err := regexp2.Compile(args[0].AsString(), regexp2.None)
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewHostHandle(h, value.HostRegex, re)), nil
}

func regexMatch(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	re, ok := regexOf(args[0])
	if !ok {
		return value.NewErr(h, "regex_match: not a regex handle"), nil
	}
	matched, err := re.MatchString(args[1].AsString())
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.Bool(matched)), nil
}

func regexFindAll(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	re, ok := regexOf(args[0])
	if !ok {
		return value.NewErr(h, "regex_find_all: not a regex handle"), nil
	}
	s := args[1].AsString()
	var out []value.Value
	m, err := re.FindStringMatch(s)
	for m != nil && err == nil {
		out = append(out, value.NewString(h, m.String()))
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewArray(h, out)), nil
}

func regexReplace(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	re, ok := regexOf(args[0])
	if !ok {
		return value.NewErr(h, "regex_replace: not a regex handle"), nil
	}
	out, err := re.Replace(args[1].AsString(), args[2].AsString(), -1, -1)
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewString(h, out)), nil
}

func regexOf(v value.Value) (*regexp2.Regexp, bool) {
	if v.Tag() != value.HostHandleT {
		return nil, false
	}
	hh := v.AsHostHandle()
	if hh.Kind != value.HostRegex {
		return nil, false
	}
	re, ok := hh.Data.(*regexp2.Regexp)
	return re, ok
}
