package service

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Cost 4 keeps the test fast; production uses 12.
func testHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.MinCost}
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash %q is not a bcrypt string", hash)
	}
	if !h.Verify("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if h.Verify("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}

func TestPasswordHasher_SaltsPerCall(t *testing.T) {
	h := testHasher()

	first, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password are identical; salting is broken")
	}
	if !h.Verify("same-password", first) || !h.Verify("same-password", second) {
		t.Error("password does not verify against both salted hashes")
	}
}

func TestPasswordHasher_FailsClosedOnCorruptHash(t *testing.T) {
	h := testHasher()

	if h.Verify("anything", "not-a-bcrypt-hash") {
		t.Error("corrupt hash verified as a match")
	}
	if h.Verify("anything", "") {
		t.Error("empty hash verified as a match")
	}
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	for _, cost := range []int{-1, 0, 100} {
		h := NewPasswordHasher(cost)
		if h.cost != 12 {
			t.Errorf("cost %d: got %d, want clamp to 12", cost, h.cost)
		}
	}
	if h := NewPasswordHasher(10); h.cost != 10 {
		t.Errorf("valid cost 10 was altered to %d", h.cost)
	}
}
