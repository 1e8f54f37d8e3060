package hash

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestSumDeterministic(t *testing.T) {
	a, err := Sum([]byte("hello"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	b, _ := Sum([]byte("hello"))
	if a != b {
		t.Fatalf("Sum not deterministic: %s != %s", a, b)
	}
	if !strings.HasPrefix(a, "z") {
		t.Fatalf("expected base58btc prefix z, got %s", a)
	}
	c, _ := Sum([]byte("hello!"))
	if a == c {
		t.Fatal("different data produced the same address")
	}
}

func TestParse(t *testing.T) {
	addr, _ := Sum([]byte("data"))
	if err := Parse(addr); err != nil {
		t.Fatalf("Parse(%s): %v", addr, err)
	}
	if err := Parse("not-a-cid"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("Parse(garbage): got %v, want ErrInvalidAddress", err)
	}
}

func TestMatches(t *testing.T) {
	addr, _ := Sum([]byte("data"))
	if !Matches(addr, []byte("data")) {
		t.Fatal("Matches should accept the original bytes")
	}
	if Matches(addr, []byte("tampered")) {
		t.Fatal("Matches should reject different bytes")
	}
}

func TestDigestLength(t *testing.T) {
	if got := len(Digest([]byte("x"))); got != 32 {
		t.Fatalf("Digest length %d, want 32", got)
	}
}
