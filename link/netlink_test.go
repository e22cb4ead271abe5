//go:build linux

package link

import (
	"net"
	"net/netip"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestPrefixToIPNet(t *testing.T) {
	ipNet := prefixToIPNet(netip.MustParsePrefix("10.0.0.1/24"))
	assert.Equal(t, "10.0.0.1/24", ipNet.String())
	assert.Equal(t, net.CIDRMask(24, 32), ipNet.Mask)

	ipNet = prefixToIPNet(netip.MustParsePrefix("2001:db8::1/64"))
	assert.Equal(t, "2001:db8::1/64", ipNet.String())
}

func TestAddPrefixUnknownLink(t *testing.T) {
	logger := hclog.NewNullLogger()

	err := AddPrefix("nosuchif0", netip.MustParsePrefix("10.0.0.1/24"), logger)
	assert.Error(t, err)

	err = AddRoute("nosuchif0", netip.MustParsePrefix("10.1.0.0/16"), logger)
	assert.Error(t, err)
}

func TestAddPrefixInvalidPrefix(t *testing.T) {
	logger := hclog.NewNullLogger()

	assert.Error(t, AddPrefix("lo", netip.Prefix{}, logger))
	assert.Error(t, AddRoute("lo", netip.Prefix{}, logger))
}
