package crypto

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

// PasswordParams are the Argon2id cost parameters.
type PasswordParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  uint32
}

// DefaultPasswordParams is used for every new hash. Hashes carry their own
// parameters, so changing these only affects hashes minted afterwards.
var DefaultPasswordParams = PasswordParams{
	Memory:      19456,
	Iterations:  2,
	Parallelism: 1,
	KeyLength:   32,
	SaltLength:  16,
}

// Argon2Hasher hashes passwords using Argon2id.
// At most maxConcurrent hash computations run at once; each one allocates
// Memory KiB.
type Argon2Hasher struct {
	params PasswordParams
	sem    *semaphore.Weighted
}

func NewArgon2Hasher(params PasswordParams, maxConcurrent int64) *Argon2Hasher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Argon2Hasher{
		params: params,
		sem:    semaphore.NewWeighted(maxConcurrent),
	}
}

// Params returns the parameters new hashes are minted with.
func (h *Argon2Hasher) Params() PasswordParams {
	return h.params
}

// Hash returns a PHC-formatted string: $argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
func (h *Argon2Hasher) Hash(ctx context.Context, password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		b64Salt,
		b64Hash,
	)

	return encoded, nil
}

// Verify checks the password against a stored hash using constant-time
// comparison. A malformed hash is an error, not a mismatch.
func (h *Argon2Hasher) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	computedHash := argon2.IDKey(
		[]byte(password),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		params.KeyLength,
	)

	return subtle.ConstantTimeCompare(hash, computedHash) == 1, nil
}

// NeedsRehash returns true if the hash was minted with other parameters.
func (h *Argon2Hasher) NeedsRehash(encodedHash string) (bool, error) {
	params, salt, _, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	return params.Memory != h.params.Memory ||
		params.Iterations != h.params.Iterations ||
		params.Parallelism != h.params.Parallelism ||
		params.KeyLength != h.params.KeyLength ||
		uint32(len(salt)) != h.params.SaltLength, nil
}

// decodeHash parses a PHC-formatted Argon2id hash string.
func decodeHash(encodedHash string) (*PasswordParams, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, apperrors.ErrInvalidHash
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("%w: unsupported algorithm %s", apperrors.ErrInvalidHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: invalid version: %v", apperrors.ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, nil, nil, apperrors.ErrIncompatibleVersion
	}

	params := &PasswordParams{}
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: invalid parameters: %v", apperrors.ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: invalid salt: %v", apperrors.ErrInvalidHash, err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: invalid hash: %v", apperrors.ErrInvalidHash, err)
	}

	params.KeyLength = uint32(len(hash))
	params.SaltLength = uint32(len(salt))

	// argon2.IDKey panics on any of these.
	if params.Iterations == 0 || params.Parallelism == 0 || params.KeyLength == 0 {
		return nil, nil, nil, fmt.Errorf("%w: zero cost parameter or empty key", apperrors.ErrInvalidHash)
	}

	return params, salt, hash, nil
}
