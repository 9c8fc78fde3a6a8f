package password

import "runtime"

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultParams is the cost used for every new hash. It is fixed at build
// time; operators cannot weaken it through configuration.
var DefaultParams = Argon2idParams{
	MemoryKiB:   64 * 1024, // 64 MiB
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// DefaultConfig returns the production hashing configuration.
// Length bounds follow the account schema: at least 6 characters, and an
// upper bound so a single request cannot feed megabytes into the KDF.
func DefaultConfig() Config {
	return Config{
		Params: DefaultParams,
		Policy: Policy{
			MinLength: 6,
			MaxLength: 256,
		},
	}
}

// DefaultConcurrency is the number of hashing operations allowed to run at
// once in a Pool when the caller does not choose one.
func DefaultConcurrency() int {
	n := runtime.NumCPU()
	if n <= 0 {
		n = 1
	}
	return n
}
