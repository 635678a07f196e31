package cidr

import (
	"errors"
	"net/netip"
	"testing"

	"awsipranges/pkg/model"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.0.0.1/8", "10.0.0.0/8"},
		{"10.255.255.255/16", "10.255.0.0/16"},
		{"10.0.0.0/32", "10.0.0.0/32"},
		{"2001:db8::1/32", "2001:db8::/32"},
		{"2001:db8:ffff::1/48", "2001:db8:ffff::/48"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Canonical(netip.MustParsePrefix(tt.in))
			if got != netip.MustParsePrefix(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReshape(t *testing.T) {
	got, err := Reshape(netip.MustParsePrefix("10.1.2.3/32"), 8)
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if want := netip.MustParsePrefix("10.0.0.0/8"); got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	got, err = Reshape(netip.MustParsePrefix("2001:db8::1/128"), 16)
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if want := netip.MustParsePrefix("2001::/16"); got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	if _, err := Reshape(netip.MustParsePrefix("10.0.0.0/8"), 33); !errors.Is(err, model.ErrInvalidPrefixLen) {
		t.Errorf("got error %v, want %v", err, model.ErrInvalidPrefixLen)
	}
	if _, err := Reshape(netip.MustParsePrefix("10.0.0.0/8"), -1); !errors.Is(err, model.ErrInvalidPrefixLen) {
		t.Errorf("got error %v, want %v", err, model.ErrInvalidPrefixLen)
	}
}

func TestIsSupernetOf(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"10.0.0.0/8", "10.0.0.0/16", true},
		{"10.0.0.0/8", "10.255.0.0/16", true},
		{"10.0.0.0/8", "10.0.0.0/8", true},
		{"10.0.0.0/16", "10.0.0.0/8", false},
		{"10.0.0.0/8", "11.0.0.0/16", false},
		{"2001:db8::/32", "2001:db8:1::/48", true},
		{"2001:db8::/48", "2001:db8:1::/48", false},
		// Mixed families are never supernets
		{"10.0.0.0/8", "2001:db8::/64", false},
		{"2001:db8::/32", "10.0.0.0/24", false},
		{"0.0.0.0/0", "::/0", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+" "+tt.b, func(t *testing.T) {
			a := netip.MustParsePrefix(tt.a)
			b := netip.MustParsePrefix(tt.b)
			if got := IsSupernetOf(a, b); got != tt.want {
				t.Errorf("IsSupernetOf(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	ordered := []string{
		"10.0.0.0/8",
		"10.0.0.0/16",
		"10.1.0.0/16",
		"192.168.0.0/24",
		"2001:db8::/32",
		"2001:db8::/48",
		"2001:db8:1::/48",
	}

	for i := 0; i < len(ordered); i++ {
		for j := 0; j < len(ordered); j++ {
			a := netip.MustParsePrefix(ordered[i])
			b := netip.MustParsePrefix(ordered[j])
			got := Compare(a, b)
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			if got != want {
				t.Errorf("Compare(%s, %s) = %d, want %d", ordered[i], ordered[j], got, want)
			}
		}
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.0.0.0/8", "10.0.0.0/8"},
		{"10.0.0.1/8", "10.0.0.0/8"},
		{"10.0.0.1", "10.0.0.1/32"},
		{"2001:db8::1", "2001:db8::1/128"},
		{"2001:db8::/32", "2001:db8::/32"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuery(tt.in)
			if err != nil {
				t.Fatalf("ParseQuery(%q) failed: %v", tt.in, err)
			}
			if got != netip.MustParsePrefix(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	for _, in := range []string{"", "not-an-ip", "10.0.0.0/33", "10.0.0.256"} {
		if _, err := ParseQuery(in); !errors.Is(err, model.ErrInvalidPrefix) {
			t.Errorf("ParseQuery(%q): got error %v, want %v", in, err, model.ErrInvalidPrefix)
		}
	}
}

func TestNetmask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.0.0.0/8", "10.0.0.0 255.0.0.0"},
		{"192.168.1.0/24", "192.168.1.0 255.255.255.0"},
		{"2001:db8::/32", "2001:db8:: ffff:ffff::"},
	}

	for _, tt := range tests {
		if got := Netmask(netip.MustParsePrefix(tt.in)); got != tt.want {
			t.Errorf("Netmask(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNetworkKeyRoundTrip(t *testing.T) {
	prefixes := []string{
		"10.0.0.0/8",
		"10.0.0.0/16",
		"192.168.1.0/24",
		"0.0.0.0/0",
		"2001:db8::/32",
		"2001:db8:1::/48",
	}

	for _, s := range prefixes {
		t.Run(s, func(t *testing.T) {
			p := netip.MustParsePrefix(s)
			got, err := DecodeNetworkKey(EncodeNetworkKey(p))
			if err != nil {
				t.Fatalf("DecodeNetworkKey failed: %v", err)
			}
			if got != p {
				t.Errorf("got %s, want %s", got, s)
			}
		})
	}

	if _, err := DecodeNetworkKey([]byte("bogus")); err == nil {
		t.Error("expected error for invalid key")
	}
}

func TestNetworkKeyOrdering(t *testing.T) {
	// Keys must sort in the same order as Compare within a family.
	a := EncodeNetworkKey(netip.MustParsePrefix("10.0.0.0/8"))
	b := EncodeNetworkKey(netip.MustParsePrefix("10.0.0.0/16"))
	c := EncodeNetworkKey(netip.MustParsePrefix("10.1.0.0/16"))

	if string(a) >= string(b) || string(b) >= string(c) {
		t.Errorf("keys out of order: %q %q %q", a, b, c)
	}
}
