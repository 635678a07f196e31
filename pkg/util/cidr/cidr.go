package cidr

import (
	"fmt"
	"net"
	"net/netip"

	"awsipranges/pkg/model"
)

const (
	// Key prefixes for LevelDB
	PrefixNetV4 = "P4:"
	PrefixNetV6 = "P6:"
	PrefixMeta  = "meta:"
)

// Canonical returns the network with all host bits below the prefix length
// cleared.
func Canonical(p netip.Prefix) netip.Prefix {
	return p.Masked()
}

// Reshape keeps the network's address and adopts the given prefix length,
// returning the canonical result. The length must be valid for the network's
// address family.
func Reshape(p netip.Prefix, bits int) (netip.Prefix, error) {
	if bits < 0 || bits > p.Addr().BitLen() {
		return netip.Prefix{}, fmt.Errorf("%w: /%d for %s", model.ErrInvalidPrefixLen, bits, p.Addr())
	}
	return netip.PrefixFrom(p.Addr(), bits).Masked(), nil
}

// IsSupernetOf reports whether a covers b: same address family, a no longer
// than b, and b's address inside a's block. Mixed families are never
// supernets.
func IsSupernetOf(a, b netip.Prefix) bool {
	if a.Addr().BitLen() != b.Addr().BitLen() {
		return false
	}
	return a.Bits() <= b.Bits() && a.Masked().Contains(b.Addr())
}

// Compare orders networks by address family (IPv4 before IPv6), then
// address, then prefix length. Addr.Compare already sorts shorter bit
// lengths first, which gives the family ordering.
func Compare(a, b netip.Prefix) int {
	if c := a.Addr().Compare(b.Addr()); c != 0 {
		return c
	}
	switch {
	case a.Bits() < b.Bits():
		return -1
	case a.Bits() > b.Bits():
		return 1
	}
	return 0
}

// ParseQuery parses an IP prefix or bare IP address string into a canonical
// network. Bare addresses become /32 (IPv4) or /128 (IPv6) networks.
func ParseQuery(s string) (netip.Prefix, error) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q", model.ErrInvalidPrefix, s)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Netmask renders a network in network/netmask format, e.g.
// "10.0.0.0 255.0.0.0" or "2001:db8:: ffff:ffff::".
func Netmask(p netip.Prefix) string {
	mask := net.IP(net.CIDRMask(p.Bits(), p.Addr().BitLen()))
	return fmt.Sprintf("%s %s", p.Masked().Addr(), mask)
}

// EncodeNetworkKey creates a LevelDB key for a network.
// Format: "P4:" + 4-byte big-endian address + prefix-length byte (IPv4) or
// "P6:" + 16-byte big-endian address + prefix-length byte (IPv6). Keys sort
// by address then prefix length within each family.
func EncodeNetworkKey(p netip.Prefix) []byte {
	tag := PrefixNetV4
	if !p.Addr().Is4() {
		tag = PrefixNetV6
	}
	addr := p.Masked().Addr().AsSlice()
	key := make([]byte, 0, len(tag)+len(addr)+1)
	key = append(key, tag...)
	key = append(key, addr...)
	key = append(key, byte(p.Bits()))
	return key
}

// DecodeNetworkKey extracts the network from a LevelDB key.
func DecodeNetworkKey(key []byte) (netip.Prefix, error) {
	var addrLen int
	var tag string
	switch {
	case len(key) == len(PrefixNetV4)+5 && string(key[:len(PrefixNetV4)]) == PrefixNetV4:
		tag, addrLen = PrefixNetV4, 4
	case len(key) == len(PrefixNetV6)+17 && string(key[:len(PrefixNetV6)]) == PrefixNetV6:
		tag, addrLen = PrefixNetV6, 16
	default:
		return netip.Prefix{}, fmt.Errorf("invalid network key")
	}
	addr, ok := netip.AddrFromSlice(key[len(tag) : len(tag)+addrLen])
	if !ok {
		return netip.Prefix{}, fmt.Errorf("invalid network key address bytes")
	}
	bits := int(key[len(key)-1])
	if bits > addr.BitLen() {
		return netip.Prefix{}, fmt.Errorf("invalid network key prefix length: %d", bits)
	}
	return netip.PrefixFrom(addr, bits), nil
}

// MetaKey creates a metadata key.
func MetaKey(suffix string) []byte {
	return []byte(PrefixMeta + suffix)
}
