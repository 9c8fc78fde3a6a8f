// Package password provides password hashing and verification utilities for Quill.
//
// It implements Argon2id hashing using a PHC-like encoded string format and includes:
//   - Fixed, build-time Argon2id parameters
//   - Password policy validation
//   - Strict hash decoding and verification with anti-DoS bounds
//   - Verification of legacy bcrypt hashes imported from the previous system
//   - A bounded worker Pool so hashing does not monopolize request goroutines
//
// Security notes:
//   - Hash strings are treated as untrusted input during Compare and are validated accordingly.
//   - Compare refuses hashes with parameters that exceed reasonable bounds.
//   - Compare never reports why a hash did not match.
package password
