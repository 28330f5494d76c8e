package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aislang/aisl/lang/bytecode"
)

func sampleProgram() *bytecode.Program {
	return &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.PushInt(10),
			bytecode.U32(bytecode.STORE_LOCAL, 0),
			bytecode.U32(bytecode.LOAD_LOCAL, 0),
			bytecode.PushInt(5),
			bytecode.Simple(bytecode.ADD_I64),
			bytecode.Simple(bytecode.RETURN),
			bytecode.PushString(0),
			bytecode.Simple(bytecode.PRINT_STRING),
			bytecode.Simple(bytecode.PUSH_UNIT),
			bytecode.Simple(bytecode.RETURN),
			bytecode.Simple(bytecode.HALT),
		},
		Strings: []string{"hello world", "второй"},
		Functions: []bytecode.FunctionEntry{
			{Name: "add_five", StartAddr: 0, LocalCount: 1, ParamCount: 1},
			{Name: "main", StartAddr: 6, LocalCount: 0, ParamCount: 0},
		},
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	p := sampleProgram()
	encoded := bytecode.EncodeBinary(p)

	decoded, err := bytecode.DecodeBinary(encoded)
	require.NoError(t, err)
	require.Equal(t, p, decoded)

	// compile-then-serialize-then-deserialize must be byte-identical
	// (spec.md §8 round-trip law).
	require.Equal(t, encoded, bytecode.EncodeBinary(decoded))

	require.Equal(t, len(p.Instructions), len(decoded.Instructions))
	require.Equal(t, len(p.Strings), len(decoded.Strings))
	require.Equal(t, len(p.Functions), len(decoded.Functions))
}

func TestBinaryFormatErrors(t *testing.T) {
	p := sampleProgram()
	encoded := bytecode.EncodeBinary(p)

	_, err := bytecode.DecodeBinary([]byte{0, 0, 0, 0})
	require.Error(t, err)

	_, err = bytecode.DecodeBinary(encoded[:len(encoded)-1])
	require.Error(t, err)

	corrupt := append([]byte(nil), encoded...)
	corrupt[4] = 0xFF
	corrupt[5] = 0xFF
	_, err = bytecode.DecodeBinary(corrupt)
	require.Error(t, err)
}

func TestTextRoundTrip(t *testing.T) {
	p := sampleProgram()
	text := bytecode.EncodeText(p)
	require.Contains(t, text, bytecode.TextMagic)

	decoded, err := bytecode.DecodeText(text)
	require.NoError(t, err)
	require.Equal(t, p, decoded)
}

func TestTextUnknownMnemonicFails(t *testing.T) {
	src := "AISLTEXT1\nstrings 0\nfunctions 0\ninstructions 1\n  bogus_opcode\n"
	_, err := bytecode.DecodeText(src)
	require.Error(t, err)
}

func TestValidateJumps(t *testing.T) {
	p := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.Jump(bytecode.JUMP, 2),
			bytecode.Simple(bytecode.NOP),
			bytecode.Simple(bytecode.RETURN),
		},
		Functions: []bytecode.FunctionEntry{{Name: "f", StartAddr: 0, LocalCount: 0, ParamCount: 0}},
	}
	require.NoError(t, p.ValidateJumps())

	bad := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.Jump(bytecode.JUMP, 99),
			bytecode.Simple(bytecode.RETURN),
		},
		Functions: []bytecode.FunctionEntry{{Name: "f", StartAddr: 0, LocalCount: 0, ParamCount: 0}},
	}
	err := bad.ValidateJumps()
	require.Error(t, err)
	var jumpErr *bytecode.JumpError
	require.ErrorAs(t, err, &jumpErr)
}
