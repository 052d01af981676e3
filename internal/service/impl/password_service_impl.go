package impl

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"

	"rdapi/internal/service"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	algoArgon2id = "argon2id"
	algoBcrypt   = "bcrypt"
)

type Argon2Params struct {
	Time    uint32 `json:"t"` // iterations
	Memory  uint32 `json:"m"` // KiB
	Threads uint8  `json:"p"`
	KeyLen  uint32 `json:"k"`
	SaltLen uint32 `json:"s"`
}

var _ service.PasswordService = (*PasswordServiceImpl)(nil)

type PasswordServiceImpl struct {
	currentVer int
	cur        Argon2Params
}

func NewPasswordServiceArgon2id() *PasswordServiceImpl {
	return &PasswordServiceImpl{
		currentVer: 1,
		cur: Argon2Params{
			Time:    3,
			Memory:  64 * 1024, // 64 MiB
			Threads: 1,
			KeyLen:  32,
			SaltLen: 16,
		},
	}
}

// NewPasswordServiceWithParams is used by tests and the CLI to pick a cheaper cost.
func NewPasswordServiceWithParams(p Argon2Params) *PasswordServiceImpl {
	return &PasswordServiceImpl{currentVer: 1, cur: p}
}

func (p *PasswordServiceImpl) Hash(password string) (hash, salt, paramsJSON []byte, algo string, ver int, err error) {
	if password == "" {
		return nil, nil, nil, "", 0, ErrEmptyPassword
	}
	salt = make([]byte, p.cur.SaltLen)
	if _, err = rand.Read(salt); err != nil {
		return nil, nil, nil, "", 0, err
	}
	hash = argon2.IDKey([]byte(password), salt, p.cur.Time, p.cur.Memory, p.cur.Threads, p.cur.KeyLen)
	paramsJSON, err = json.Marshal(p.cur)
	if err != nil {
		return nil, nil, nil, "", 0, err
	}
	return hash, salt, paramsJSON, algoArgon2id, p.currentVer, nil
}

// Verify accepts argon2id hashes and imported bcrypt hashes. Any successful
// bcrypt verification asks for a rehash.
func (p *PasswordServiceImpl) Verify(password string, cred service.Credential) (rehashNeeded bool, ok bool) {
	switch cred.GetAlgo() {
	case algoBcrypt:
		if bcrypt.CompareHashAndPassword(cred.GetHash(), []byte(password)) != nil {
			return false, false
		}
		return true, true
	case algoArgon2id:
	default:
		return false, false
	}

	var stored Argon2Params
	if err := json.Unmarshal(cred.GetParamsJSON(), &stored); err != nil {
		return false, false
	}
	calculated := argon2.IDKey([]byte(password), cred.GetSalt(), stored.Time, stored.Memory, stored.Threads, stored.KeyLen)
	ok = subtle.ConstantTimeCompare(calculated, cred.GetHash()) == 1

	rehashNeeded = ok && (cred.GetPasswordVer() != p.currentVer || stored != p.cur)
	return rehashNeeded, ok
}
