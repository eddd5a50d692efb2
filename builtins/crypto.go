package builtins

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"tram/eval"
	"tram/types"
)

// ============================================================================
// ENCODING BUILTINS
// ============================================================================

func base64Encoding(args []types.Value) *base64.Encoding {
	if len(args) == 2 && args[1].Truthy() {
		return base64.URLEncoding
	}
	return base64.StdEncoding
}

// builtinEncodeBase64 encodes a string to base64
// encode_base64(str [, url_safe]) -> str
func builtinEncodeBase64(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "encode_base64", args, 1, 2); err != nil {
		return nil, err
	}
	s, err := strArg(p, "encode_base64", args, 0)
	if err != nil {
		return nil, err
	}
	enc := base64Encoding(args)
	return types.NewStr(enc.EncodeToString([]byte(s))), nil
}

// builtinDecodeBase64 decodes a base64 string
// decode_base64(str [, url_safe]) -> str
func builtinDecodeBase64(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "decode_base64", args, 1, 2); err != nil {
		return nil, err
	}
	s, err := strArg(p, "decode_base64", args, 0)
	if err != nil {
		return nil, err
	}
	enc := base64Encoding(args)
	data, err := enc.DecodeString(s)
	if err != nil {
		return nil, valueError(p, "invalid base64 data: %v", err)
	}
	return types.NewStr(string(data)), nil
}

// ============================================================================
// HASHING BUILTINS
// ============================================================================

// getHasher returns a hash.Hash for the given algorithm name
func getHasher(algo string) (func() hash.Hash, bool) {
	switch strings.ToLower(algo) {
	case "md5":
		return md5.New, true
	case "sha1":
		return sha1.New, true
	case "sha224":
		return sha256.New224, true
	case "sha256", "":
		return sha256.New, true
	case "sha384":
		return sha512.New384, true
	case "sha512":
		return sha512.New, true
	case "ripemd160":
		return ripemd160.New, true
	case "sha3-256":
		return sha3.New256, true
	case "sha3-512":
		return sha3.New512, true
	case "blake2b-256":
		return func() hash.Hash {
			h, _ := blake2b.New256(nil)
			return h
		}, true
	case "blake2b-512":
		return func() hash.Hash {
			h, _ := blake2b.New512(nil)
			return h
		}, true
	default:
		return nil, false
	}
}

// hashOptions reads the optional algorithm and binary-output arguments
// that follow the fixed ones
func hashOptions(p *eval.Processor, name string, args []types.Value, from int) (func() hash.Hash, bool, error) {
	algo := "sha256"
	if len(args) > from {
		s, err := strArg(p, name, args, from)
		if err != nil {
			return nil, false, err
		}
		algo = s
	}
	binaryOutput := len(args) > from+1 && args[from+1].Truthy()
	hasher, ok := getHasher(algo)
	if !ok {
		return nil, false, valueError(p, "unknown hash algorithm '%s'", algo)
	}
	return hasher, binaryOutput, nil
}

func digestString(sum []byte, binaryOutput bool) types.StrValue {
	if binaryOutput {
		return types.NewStr(string(sum))
	}
	return types.NewStr(strings.ToUpper(hex.EncodeToString(sum)))
}

// builtinStringHash hashes a string with specified algorithm
// string_hash(str [, algo [, binary]]) -> str
// Output is upper-case hex unless binary is true.
func builtinStringHash(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "string_hash", args, 1, 3); err != nil {
		return nil, err
	}
	s, err := strArg(p, "string_hash", args, 0)
	if err != nil {
		return nil, err
	}
	newHash, binaryOutput, err := hashOptions(p, "string_hash", args, 1)
	if err != nil {
		return nil, err
	}
	h := newHash()
	h.Write([]byte(s))
	return digestString(h.Sum(nil), binaryOutput), nil
}

// builtinStringHmac computes HMAC for a string
// string_hmac(str, key [, algo [, binary]]) -> str
func builtinStringHmac(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "string_hmac", args, 2, 4); err != nil {
		return nil, err
	}
	s, err := strArg(p, "string_hmac", args, 0)
	if err != nil {
		return nil, err
	}
	key, err := strArg(p, "string_hmac", args, 1)
	if err != nil {
		return nil, err
	}
	newHash, binaryOutput, err := hashOptions(p, "string_hmac", args, 2)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(newHash, []byte(key))
	mac.Write([]byte(s))
	return digestString(mac.Sum(nil), binaryOutput), nil
}

// builtinRandomBytes returns n random bytes, hex encoded
// random_bytes(n) -> str
func builtinRandomBytes(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "random_bytes", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := intArg(p, "random_bytes", args, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > 10000 {
		return nil, valueError(p, "random_bytes() count must be between 0 and 10000")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return types.NewStr(hex.EncodeToString(buf)), nil
}

// ============================================================================
// PASSWORD HASHING
// ============================================================================

const (
	argon2Time    = uint32(1)
	argon2Memory  = uint32(64 * 1024)
	argon2Threads = uint8(2)
	argon2KeyLen  = uint32(32)
)

// builtinArgon2 hashes a password with argon2id
// argon2(password [, salt]) -> str
// The result is the PHC encoded form "$argon2id$v=19$m=...,t=...,p=...$salt$hash".
// Without a salt, 16 random bytes are used.
func builtinArgon2(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "argon2", args, 1, 2); err != nil {
		return nil, err
	}
	password, err := strArg(p, "argon2", args, 0)
	if err != nil {
		return nil, err
	}
	var salt []byte
	if len(args) == 2 {
		s, err := strArg(p, "argon2", args, 1)
		if err != nil {
			return nil, err
		}
		salt = []byte(s)
		if len(salt) < 8 {
			return nil, valueError(p, "argon2() salt must be at least 8 bytes")
		}
	} else {
		salt = make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
	}
	h := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version,
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(h),
	)
	return types.NewStr(encoded), nil
}

func parseArgon2Hash(encoded string) (m, t uint32, threads uint8, salt, sum []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, fmt.Errorf("not an argon2id hash")
	}
	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return 0, 0, 0, nil, nil, fmt.Errorf("malformed parameters %q", parts[3])
	}
	m64, err := strconv.ParseUint(strings.TrimPrefix(params[0], "m="), 10, 32)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	t64, err := strconv.ParseUint(strings.TrimPrefix(params[1], "t="), 10, 32)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	p64, err := strconv.ParseUint(strings.TrimPrefix(params[2], "p="), 10, 8)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return 0, 0, 0, nil, nil, err
	}
	if sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return 0, 0, 0, nil, nil, err
	}
	return uint32(m64), uint32(t64), uint8(p64), salt, sum, nil
}

// builtinArgon2Verify checks a password against an argon2 hash
// argon2_verify(hash, password) -> bool
func builtinArgon2Verify(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "argon2_verify", args, 2, 2); err != nil {
		return nil, err
	}
	encoded, err := strArg(p, "argon2_verify", args, 0)
	if err != nil {
		return nil, err
	}
	password, err := strArg(p, "argon2_verify", args, 1)
	if err != nil {
		return nil, err
	}
	m, t, threads, salt, expected, err := parseArgon2Hash(encoded)
	if err != nil {
		return nil, valueError(p, "argon2_verify(): %v", err)
	}
	actual := argon2.IDKey([]byte(password), salt, t, m, threads, uint32(len(expected)))
	return types.NewBool(subtle.ConstantTimeCompare(actual, expected) == 1), nil
}
