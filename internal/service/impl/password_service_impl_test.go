package impl

import (
	"testing"

	"rdapi/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashVerify(t *testing.T) {
	ps := cheapPasswords()

	hash, salt, params, algo, ver, err := ps.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cred := &domain.PasswordCredential{Algo: algo, Hash: hash, Salt: salt, ParamsJSON: params, PasswordVer: ver}

	rehash, ok := ps.Verify("correct horse", cred)
	if !ok || rehash {
		t.Fatalf("Verify = rehash %v ok %v, want false true", rehash, ok)
	}
	if _, ok := ps.Verify("wrong horse", cred); ok {
		t.Fatalf("wrong password verified")
	}
	if _, _, _, _, _, err := ps.Hash(""); err == nil {
		t.Fatalf("empty password hashed")
	}
}

func TestPasswordParamsUpgradeRequestsRehash(t *testing.T) {
	old := cheapPasswords()
	hash, salt, params, algo, ver, err := old.Hash("secret-1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cred := &domain.PasswordCredential{Algo: algo, Hash: hash, Salt: salt, ParamsJSON: params, PasswordVer: ver}

	stronger := NewPasswordServiceWithParams(Argon2Params{Time: 2, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	rehash, ok := stronger.Verify("secret-1", cred)
	if !ok || !rehash {
		t.Fatalf("Verify = rehash %v ok %v, want true true", rehash, ok)
	}
}

func TestPasswordBcryptImport(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	cred := &domain.PasswordCredential{Algo: "bcrypt", Hash: h, Salt: []byte{}, ParamsJSON: []byte("{}")}

	ps := cheapPasswords()
	rehash, ok := ps.Verify("legacy-pass", cred)
	if !ok || !rehash {
		t.Fatalf("bcrypt Verify = rehash %v ok %v, want true true", rehash, ok)
	}
	if _, ok := ps.Verify("nope", cred); ok {
		t.Fatalf("wrong bcrypt password verified")
	}
	if _, ok := ps.Verify("legacy-pass", &domain.PasswordCredential{Algo: "md5", Hash: h}); ok {
		t.Fatalf("unknown algorithm verified")
	}
}
