package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params tunes the memory-hard hasher.
type Argon2Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params are sized for interactive logins.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKB:    64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

const (
	argon2MinMemoryKB uint32 = 8 * 1024
	argon2MinSaltLen  uint32 = 16
	argon2MinKeyLen   uint32 = 16
)

// Argon2 is the memory-hard hasher. Hashes are emitted in PHC string
// format ($argon2id$v=..$m=..,t=..,p=..$salt$hash) so parameters travel
// with the hash and Verify works across parameter changes.
type Argon2 struct {
	params Argon2Params
}

// NewArgon2 validates params and returns the hasher. Callers that need
// graceful degradation (the selector does) treat an error here as "memory
// hard hashing unavailable" and fall back to bcrypt.
func NewArgon2(params Argon2Params) (*Argon2, error) {
	if params.MemoryKB < argon2MinMemoryKB {
		return nil, errors.New("argon2 memory must be >= 8192 KB")
	}
	if params.Time < 1 {
		return nil, errors.New("argon2 time must be >= 1")
	}
	if params.Parallelism < 1 {
		return nil, errors.New("argon2 parallelism must be >= 1")
	}
	if params.SaltLength < argon2MinSaltLen {
		return nil, errors.New("argon2 salt length must be >= 16")
	}
	if params.KeyLength < argon2MinKeyLen {
		return nil, errors.New("argon2 key length must be >= 16")
	}
	return &Argon2{params: params}, nil
}

func (a *Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.params.Time, a.params.MemoryKB, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.params.MemoryKB, a.params.Time, a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a *Argon2) Verify(hash, password string) bool {
	memory, timeCost, parallelism, salt, key, err := parseArgon2Hash(hash)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, timeCost, memory, parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

func parseArgon2Hash(hash string) (memory, timeCost uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, errors.New("not an argon2id hash")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}

	for _, pair := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return 0, 0, 0, nil, nil, errors.New("malformed argon2 parameters")
		}
		v, perr := strconv.ParseUint(kv[1], 10, 32)
		if perr != nil {
			return 0, 0, 0, nil, nil, errors.New("malformed argon2 parameters")
		}
		switch kv[0] {
		case "m":
			memory = uint32(v)
		case "t":
			timeCost = uint32(v)
		case "p":
			parallelism = uint8(v)
		}
	}
	if memory == 0 || timeCost == 0 || parallelism == 0 {
		return 0, 0, 0, nil, nil, errors.New("missing argon2 parameters")
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return 0, 0, 0, nil, nil, err
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return 0, 0, 0, nil, nil, err
	}
	if len(key) == 0 {
		return 0, 0, 0, nil, nil, errors.New("empty argon2 key")
	}
	return memory, timeCost, parallelism, salt, key, nil
}
