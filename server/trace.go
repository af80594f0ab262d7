package server

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/hsdfat8/pgw-gw/pkg/logger"
)

// TraceWriter appends received datagrams to a pcap file, wrapped in
// synthesised Ethernet/IPv4/UDP layers so the capture opens directly
// in Wireshark. Writes are serialised by the writer's own mutex;
// failures degrade to a logged no-op, like the CDR writer.
type TraceWriter struct {
	mu sync.Mutex
	f  *os.File
	w  *pcapgo.Writer
}

// NewTraceWriter creates the pcap file and writes its header.
// Returns nil if the file cannot be created; the caller treats a nil
// writer as trace-disabled.
func NewTraceWriter(path string) *TraceWriter {
	f, err := os.Create(path)
	if err != nil {
		logger.Log.Errorw("Failed to create pcap trace file", "path", path, "error", err)
		return nil
	}

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		logger.Log.Errorw("Failed to write pcap file header", "path", path, "error", err)
		f.Close()
		return nil
	}

	logger.Log.Infow("Packet trace enabled", "path", path)
	return &TraceWriter{f: f, w: w}
}

// WritePacket records one received datagram. peer is the sender,
// local the bound socket address.
func (t *TraceWriter) WritePacket(peer, local *net.UDPAddr, payload []byte) {
	srcIP := peer.IP.To4()
	if srcIP == nil {
		srcIP = net.IPv4(127, 0, 0, 1).To4()
	}
	dstIP := local.IP.To4()
	if dstIP == nil || dstIP.IsUnspecified() {
		dstIP = net.IPv4(127, 0, 0, 1).To4()
	}

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e},
		DstMAC:       net.HardwareAddr{0x00, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(peer.Port),
		DstPort: layers.UDPPort(local.Port),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		logger.Log.Warnw("Failed to bind pcap checksum layer", "error", err)
		return
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		logger.Log.Warnw("Failed to serialise trace packet", "error", err)
		return
	}

	data := buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(data),
		Length:        len(data),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.w.WritePacket(ci, data); err != nil {
		logger.Log.Warnw("Failed to write trace packet", "error", err)
	}
}

// Close closes the pcap file
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.f == nil {
		return nil
	}
	err := t.f.Close()
	t.f = nil
	return err
}
