package transport

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"
)

// assemblerCtxWithSeq is the reassembly.AssemblerContext implementation we
// hand to the assembler for every packet, so that ReassembledSG callbacks
// can recover the TCP sequence number that positions a segment within its
// stream's receive buffer.
type assemblerCtxWithSeq struct {
	ci  gopacket.CaptureInfo
	seq reassembly.Sequence
}

func contextFromTCPPacket(p gopacket.Packet, t *layers.TCP) *assemblerCtxWithSeq {
	return &assemblerCtxWithSeq{
		ci:  p.Metadata().CaptureInfo,
		seq: reassembly.Sequence(t.Seq),
	}
}

func (ctx *assemblerCtxWithSeq) GetCaptureInfo() gopacket.CaptureInfo {
	return ctx.ci
}
