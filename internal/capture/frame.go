package capture

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/pion/rtp"
)

const (
	ethHeaderLen = 14
	ipHeaderLen  = 20
	udpHeaderLen = 8

	// HeadersLen is the link, network, transport and RTP header overhead.
	HeadersLen = ethHeaderLen + ipHeaderLen + udpHeaderLen + packet.HeaderSize

	ipTTL = 64
)

// Checksum is the RFC 1071 Internet checksum of b.
func Checksum(b []byte) uint16 {
	var sum uint32
	for len(b) >= 2 {
		sum += uint32(b[0])<<8 | uint32(b[1])
		b = b[2:]
	}
	if len(b) == 1 {
		sum += uint32(b[0]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

// RTPHeader builds the fixed 12-byte RTP header for v.
func RTPHeader(ep Endpoints, v packet.View) rtp.Header {
	return rtp.Header{
		Version:        2,
		Marker:         v.Marker(),
		PayloadType:    v.PayloadType(),
		SequenceNumber: v.SequenceNumber(),
		Timestamp:      v.Timestamp(),
		SSRC:           ep.SSRC,
	}
}

// EncodeRTP returns the RTP header followed by the packet's frame bytes.
func EncodeRTP(ep Endpoints, v packet.View) ([]byte, error) {
	h := RTPHeader(ep, v)
	buf := make([]byte, packet.HeaderSize, packet.HeaderSize+v.PayloadSize())
	if _, err := h.MarshalTo(buf); err != nil {
		return nil, fmt.Errorf("marshal rtp header: %w", err)
	}
	return v.AppendPayload(buf), nil
}

// EncodeFrame synthesizes the Ethernet/IPv4/UDP/RTP frame carrying v.
// The UDP checksum is left zero.
func EncodeFrame(ep Endpoints, v packet.View) ([]byte, error) {
	rtpBytes, err := EncodeRTP(ep, v)
	if err != nil {
		return nil, err
	}

	eth := &layers.Ethernet{
		SrcMAC:       ep.SrcMAC,
		DstMAC:       ep.DstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      ipTTL,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    ep.SrcIP,
		DstIP:    ep.DstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(ep.SrcPort),
		DstPort: layers.UDPPort(ep.DstPort),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(rtpBytes)); err != nil {
		return nil, fmt.Errorf("serialize frame: %w", err)
	}

	// drop the minimum-size ethernet padding, records carry the exact frame
	want := ethHeaderLen + ipHeaderLen + udpHeaderLen + len(rtpBytes)
	out := buf.Bytes()[:want]

	iph := out[ethHeaderLen : ethHeaderLen+ipHeaderLen]
	iph[10], iph[11] = 0, 0
	binary.BigEndian.PutUint16(iph[10:], Checksum(iph))
	return out, nil
}
