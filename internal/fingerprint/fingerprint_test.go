package fingerprint

import (
	"strings"
	"testing"
)

func TestNormalize_CollapsesWhitespaceAndCase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  The  Moon   is round. ", "the moon is round"},
		{"The moon is round", "the moon is round"},
		{"THE MOON\tIS\nROUND!", "the moon is round"},
		{"", ""},
	}

	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestHash_EquivalentTextsCollide(t *testing.T) {
	a := Hash("The sky is blue.")
	b := Hash("  the sky   is blue ")

	if a != b {
		t.Errorf("Expected equivalent claims to share a hash, got %q vs %q", a, b)
	}

	if len(a) != HashLength {
		t.Errorf("Expected %d hex chars, got %d", HashLength, len(a))
	}

	if strings.ToLower(a) != a {
		t.Errorf("Expected lowercase hex, got %q", a)
	}
}

func TestHash_DistinctClaimsDiffer(t *testing.T) {
	if Hash("the sky is blue") == Hash("the sky is green") {
		t.Error("Expected distinct claims to produce distinct hashes")
	}
}

func TestCacheKey_CarriesDiscriminator(t *testing.T) {
	h := Hash("my birthday is in june")
	shared := CacheKey(h, "shared")
	personal := CacheKey(h, "user-42")

	if shared == personal {
		t.Error("Expected different discriminators to produce different keys")
	}
}
