package auth

import (
	"strconv"
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	record, err := HashPassword("hunter2-but-longer", 1000)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !VerifyPassword("hunter2-but-longer", record) {
		t.Fatal("expected the original password to verify against its own record")
	}
	if VerifyPassword("hunter2-but-wronger", record) {
		t.Fatal("expected a different password to fail verification")
	}
}

func TestHashPasswordRecordFormat(t *testing.T) {
	record, err := HashPassword("secret123", 5000)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	parts := strings.Split(record, "$")
	if len(parts) != 5 {
		t.Fatalf("expected 5 record fields, got %d in %q", len(parts), record)
	}
	if parts[0] != "pbkdf2" || parts[1] != "v1" {
		t.Fatalf("unexpected scheme/version: %s$%s", parts[0], parts[1])
	}
	if parts[2] != "5000" {
		t.Fatalf("expected recorded iteration count 5000, got %s", parts[2])
	}
}

func TestHashPasswordSaltsAreUnique(t *testing.T) {
	a, err := HashPassword("same password", 1000)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	b, err := HashPassword("same password", 1000)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must not share a salt")
	}
}

func TestHashPasswordClampsIterations(t *testing.T) {
	record, err := HashPassword("secret123", MaxPasswordIterations*10)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	iters, err := strconv.Atoi(strings.Split(record, "$")[2])
	if err != nil {
		t.Fatalf("iteration field not numeric: %v", err)
	}
	if iters != MaxPasswordIterations {
		t.Fatalf("expected iterations clamped to %d, got %d", MaxPasswordIterations, iters)
	}
	if !VerifyPassword("secret123", record) {
		t.Fatal("clamped record should still verify")
	}
}

func TestVerifyPasswordUsesRecordedIterations(t *testing.T) {
	// A record made with a low count must verify even when the
	// process-wide default is much higher.
	record, err := HashPassword("legacy-pass", 100)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !VerifyPassword("legacy-pass", record) {
		t.Fatal("expected verification to honor the iteration count stored in the record")
	}
}

func TestVerifyPasswordMalformedRecords(t *testing.T) {
	bad := []string{
		"",
		"not-a-record",
		"pbkdf2$v1$1000$deadbeef",                     // missing key field
		"bcrypt$v1$1000$deadbeef$deadbeef",            // wrong scheme
		"pbkdf2$v2$1000$deadbeef$deadbeef",            // unknown version
		"pbkdf2$v1$zero$deadbeef$deadbeef",            // non-numeric iterations
		"pbkdf2$v1$-5$deadbeef$deadbeef",              // negative iterations
		"pbkdf2$v1$9999999$deadbeef$deadbeef",         // over the cap
		"pbkdf2$v1$1000$nothex$deadbeef",              // bad salt hex
		"pbkdf2$v1$1000$deadbeef$nothex",              // bad key hex
		"pbkdf2$v1$1000$$deadbeef",                    // empty salt
		"pbkdf2$v1$1000$deadbeef$",                    // empty key
		"pbkdf2$v1$1000$deadbeef$deadbeef$extrafield", // too many fields
	}
	for _, record := range bad {
		if VerifyPassword("whatever", record) {
			t.Fatalf("expected malformed record %q to fail verification", record)
		}
	}
}
