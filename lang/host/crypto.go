package host

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

func cryptoSHA256(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	sum := sha256.Sum256([]byte(args[0].AsString()))
	return value.NewString(h, hex.EncodeToString(sum[:])), nil
}

func cryptoSHA512(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	sum := sha512.Sum512([]byte(args[0].AsString()))
	return value.NewString(h, hex.EncodeToString(sum[:])), nil
}

func cryptoBlake2b256(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	sum := blake2b.Sum256([]byte(args[0].AsString()))
	return value.NewString(h, hex.EncodeToString(sum[:])), nil
}

// cryptoBcrypt hashes a password with bcrypt's adaptive cost, returning
// ok(hash) with the self-describing hash string (cost and salt embedded),
// or err(message) when bcrypt rejects the cost or the password.
func cryptoBcrypt(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	cost := int(args[1].AsInt())
	sum, err := bcrypt.GenerateFromPassword([]byte(args[0].AsString()), cost)
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewString(h, string(sum))), nil
}

// cryptoHKDF derives keyLen bytes from secret and salt via HKDF-SHA256,
// hex-encoded. Used for deriving session keys from a shared secret rather
// than for password storage (that's cryptoBcrypt's job).
func cryptoHKDF(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	secret := []byte(args[0].AsString())
	salt := []byte(args[1].AsString())
	keyLen := int(args[2].AsInt())
	r := hkdf.New(sha256.New, secret, salt, nil)
	out := make([]byte, keyLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewString(h, hex.EncodeToString(out))), nil
}
