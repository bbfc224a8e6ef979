// Package capture serializes RTP packets into pcap and rtpdump files.
package capture

import (
	"errors"
	"fmt"
	"net"

	"github.com/lars-sto/rtp-capture-simulation/internal/config"
)

var ErrEndpoint = errors.New("capture: invalid endpoint")

// Endpoints are the synthetic link, network and transport addresses stamped
// on every record.
type Endpoints struct {
	SrcMAC  net.HardwareAddr
	DstMAC  net.HardwareAddr
	SrcIP   net.IP
	DstIP   net.IP
	SrcPort uint16
	DstPort uint16
	SSRC    uint32
}

// DefaultEndpoints are the stock addresses used when nothing is configured.
func DefaultEndpoints() Endpoints {
	ep, err := EndpointsFromConfig(config.DefaultConfig())
	if err != nil {
		panic(err)
	}
	return ep
}

func EndpointsFromConfig(cfg *config.Config) (Endpoints, error) {
	var ep Endpoints
	var err error

	if ep.SrcMAC, err = parseMAC(cfg, "global:src_mac"); err != nil {
		return ep, err
	}
	if ep.DstMAC, err = parseMAC(cfg, "global:dst_mac"); err != nil {
		return ep, err
	}
	if ep.SrcIP, err = parseIPv4(cfg, "global:src_ip"); err != nil {
		return ep, err
	}
	if ep.DstIP, err = parseIPv4(cfg, "global:dst_ip"); err != nil {
		return ep, err
	}
	if ep.SrcPort, err = parsePort(cfg, "global:src_port"); err != nil {
		return ep, err
	}
	if ep.DstPort, err = parsePort(cfg, "global:dst_port"); err != nil {
		return ep, err
	}
	ssrc, err := cfg.Int("global:ssrc", 0x12011A0C)
	if err != nil {
		return ep, err
	}
	ep.SSRC = uint32(ssrc)
	return ep, nil
}

func parseMAC(cfg *config.Config, key string) (net.HardwareAddr, error) {
	v := cfg.String(key, "")
	mac, err := net.ParseMAC(v)
	if err != nil || len(mac) != 6 {
		return nil, fmt.Errorf("%w: %s=%q", ErrEndpoint, key, v)
	}
	return mac, nil
}

func parseIPv4(cfg *config.Config, key string) (net.IP, error) {
	v := cfg.String(key, "")
	ip := net.ParseIP(v).To4()
	if ip == nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrEndpoint, key, v)
	}
	return ip, nil
}

func parsePort(cfg *config.Config, key string) (uint16, error) {
	v, err := cfg.Int(key, 0)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 0xFFFF {
		return 0, fmt.Errorf("%w: %s=%d", ErrEndpoint, key, v)
	}
	return uint16(v), nil
}
