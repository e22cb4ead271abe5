package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Conf describes the interface the taptun command creates.
type Conf struct {
	// interface name, may contain a %d template
	Name string `yaml:"name"`
	// "tun" or "tap"
	Mode string `yaml:"mode"`
	// keep the packet information header on every frame
	PacketInformation bool `yaml:"packet_information"`
	// MTU to set after creation, 0 keeps the kernel default
	MTU int `yaml:"mtu"`
	// addresses with prefix length, e.g. 10.0.0.1/24
	Addrs []string `yaml:"addrs"`
	// destination prefixes routed through the interface
	Routes []string `yaml:"routes"`
	// bring the interface up
	Up bool `yaml:"up"`
	// dump every frame read from the interface and write it back
	Echo bool `yaml:"echo"`
	// log level: trace, debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// log file, stderr when empty
	LogFile string `yaml:"log_file"`
}

const (
	ModeTun = "tun"
	ModeTap = "tap"
)

var DefaultConf = Conf{
	Name:     "tun%d",
	Mode:     ModeTun,
	Up:       true,
	LogLevel: "info",
}

// Load reads a YAML file on top of DefaultConf and validates the result.
func Load(filename string) (*Conf, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	conf := DefaultConf
	if err := yaml.UnmarshalStrict(buf, &conf); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &conf, nil
}

func (c *Conf) Validate() error {
	c.Mode = strings.ToLower(c.Mode)
	if c.Mode != ModeTun && c.Mode != ModeTap {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.MTU < 0 {
		return errors.New("mtu < 0")
	}
	if _, err := c.Prefixes(); err != nil {
		return err
	}
	if _, err := c.RoutePrefixes(); err != nil {
		return err
	}
	return nil
}

func (c *Conf) Prefixes() ([]netip.Prefix, error) {
	return parsePrefixes(c.Addrs)
}

func (c *Conf) RoutePrefixes() ([]netip.Prefix, error) {
	return parsePrefixes(c.Routes)
}

// parsePrefixes accepts bare addresses as host prefixes.
func parsePrefixes(ss []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(ss))
	for _, s := range ss {
		if !strings.Contains(s, "/") {
			addr, err := netip.ParseAddr(s)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}
