// Package clientip resolves the value sent as the "ip" parameter of config
// service requests.
//
// The config service uses the value for gray-release matching and to show
// which instances hold which release. It does not have to be an address.
package clientip

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"
)

const (
	// FallbackIP is used when no host address matches.
	FallbackIP = "127.0.0.1"

	// FallbackHostName is used when the host name cannot be read.
	FallbackHostName = "unknown"
)

type kind int

const (
	kindCustom kind = iota
	kindHostName
	kindHostIP
	kindHostCIDR
)

// Value describes how the client identity is obtained.
// The zero Value is an empty custom value.
type Value struct {
	kind   kind
	custom string
	prefix netip.Prefix
}

// Custom returns a Value that is sent verbatim.
func Custom(s string) Value {
	return Value{kind: kindCustom, custom: s}
}

// HostName returns a Value resolved to the machine's host name.
func HostName() Value {
	return Value{kind: kindHostName}
}

// HostIP returns a Value resolved to the first address of the machine.
func HostIP() Value {
	return Value{kind: kindHostIP}
}

// HostCIDR returns a Value resolved to the first machine address inside cidr,
// such as "10.2.0.0/16".
func HostCIDR(cidr string) (Value, error) {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return Value{}, fmt.Errorf("invalid cidr %q: %w", cidr, err)
	}
	return Value{kind: kindHostCIDR, prefix: p.Masked()}, nil
}

// Parse reads the textual form used on the command line:
// "hostname", "hostip", "cidr:<cidr>" or any other literal value.
func Parse(s string) (Value, error) {
	switch {
	case s == "hostname":
		return HostName(), nil
	case s == "hostip":
		return HostIP(), nil
	case strings.HasPrefix(s, "cidr:"):
		return HostCIDR(strings.TrimPrefix(s, "cidr:"))
	default:
		return Custom(s), nil
	}
}

// IsZero reports whether v is the zero Value.
func (v Value) IsZero() bool {
	return v == Value{}
}

// String describes the Value without resolving it.
func (v Value) String() string {
	switch v.kind {
	case kindHostName:
		return "hostname"
	case kindHostIP:
		return "hostip"
	case kindHostCIDR:
		return "cidr:" + v.prefix.String()
	default:
		return v.custom
	}
}

// Resolve returns the value using the system resolver.
func (v Value) Resolve() string {
	return v.ResolveWith(System)
}

// ResolveWith returns the value using r for host lookups.
func (v Value) ResolveWith(r Resolver) string {
	switch v.kind {
	case kindHostName:
		name, err := r.Hostname()
		if err != nil || name == "" {
			return FallbackHostName
		}
		return name
	case kindHostIP:
		addrs, err := r.Addrs()
		if err != nil || len(addrs) == 0 {
			return FallbackIP
		}
		return addrs[0].String()
	case kindHostCIDR:
		addrs, err := r.Addrs()
		if err != nil {
			return FallbackIP
		}
		for _, a := range addrs {
			if v.prefix.Contains(a.Unmap()) {
				return a.Unmap().String()
			}
		}
		return FallbackIP
	default:
		return v.custom
	}
}

// Resolver looks up host information.
type Resolver interface {
	Hostname() (string, error)
	Addrs() ([]netip.Addr, error)
}

// System is the Resolver backed by the operating system.
var System Resolver = systemResolver{}

type systemResolver struct{}

func (systemResolver) Hostname() (string, error) {
	return os.Hostname()
}

// Addrs returns the non-loopback interface addresses.
func (systemResolver) Addrs() ([]netip.Addr, error) {
	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var addrs []netip.Addr
	for _, a := range ifaceAddrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok || addr.IsLoopback() {
			continue
		}
		addrs = append(addrs, addr.Unmap())
	}
	return addrs, nil
}
