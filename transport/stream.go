package transport

import (
	"encoding/binary"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"
	"github.com/mel2oo/quicbuf/gid"
	"github.com/mel2oo/quicbuf/recvbuf"
)

// ControlFlags carries the TCP control bits of a zero-payload segment
// (typically SYN/ACK/FIN/RST), emitted so callers can observe connection
// lifecycle events even though no stream bytes reach a receive buffer.
type ControlFlags struct {
	SYN, ACK, FIN, RST bool
}

// Chunk is one unit of in-order payload bytes drained from a TCP half-flow's
// receive buffer, or a control-only event when Control is non-nil.
type Chunk struct {
	StreamID gid.ConnectionID

	SrcIP   net.IP
	SrcPort int
	DstIP   net.IP
	DstPort int

	// Offset is the byte's position in the flow's receive buffer, relative
	// to the first sequence number observed for this flow.
	Offset  uint64
	Payload []byte

	// End is true on the chunk that drains the last byte of a flow that
	// has reached ReassemblyComplete.
	End bool

	Control *ControlFlags

	ObservationTime time.Time
}

// tcpFlow represents a uni-directional half of a tcpStream. Writes arrive
// from the assembler via reassembled; it accumulates them in a recvbuf.Buffer
// keyed by relative TCP sequence number, then drains whatever is
// ready-to-read back out as Chunks.
type tcpFlow struct {
	netFlow gopacket.Flow // constant
	tcpFlow gopacket.Flow // constant

	streamID gid.ConnectionID // constant, shared with the opposite-direction flow

	out chan<- Chunk

	recv       *recvbuf.Buffer
	writeLimit uint64

	haveBase bool
	baseSeq  reassembly.Sequence
}

func newTCPFlow(streamID gid.ConnectionID, nf, tf gopacket.Flow, out chan<- Chunk, opts *Options) (*tcpFlow, error) {
	recv, err := recvbuf.NewBuffer(
		recvbuf.WithMode(opts.BufferMode),
		recvbuf.WithLengths(opts.BufferAllocLength, opts.BufferVirtualLength),
	)
	if err != nil {
		return nil, err
	}

	return &tcpFlow{
		netFlow:    nf,
		tcpFlow:    tf,
		streamID:   streamID,
		out:        out,
		recv:       recv,
		writeLimit: opts.WriteLimit,
	}, nil
}

// reassembled handles one batch of in-order bytes the assembler hands us for
// this flow's direction.
func (f *tcpFlow) reassembled(sg reassembly.ScatterGather, ac reassembly.AssemblerContext) {
	_, _, isEnd, _ := sg.Info()
	bytesAvailable, _ := sg.Lengths()
	data := sg.Fetch(bytesAvailable)

	ctx, ok := sg.AssemblerContext(0).(*assemblerCtxWithSeq)
	if !ok {
		// Can't recover a sequence number for the first byte of this batch;
		// without it we have no offset to write at, so drop the segment.
		return
	}

	if !f.haveBase {
		f.baseSeq = ctx.seq
		f.haveBase = true
	}
	offset := uint64(ctx.seq - f.baseSeq)

	admitted := f.writeLimit
	if _, err := f.recv.Write(offset, data, &admitted); err != nil {
		// Flow-control violation or a write the buffer otherwise refused;
		// nothing more we can do with this batch.
		return
	}
	// Write reports the new bytes this call admitted; charge them against
	// the flow's remaining budget.
	f.writeLimit -= admitted

	f.drain(ctx.GetCaptureInfo().Timestamp, isEnd)
}

// drain emits every contiguous run of ready-to-read bytes currently sitting
// in the flow's receive buffer.
func (f *tcpFlow) drain(observed time.Time, end bool) {
	for f.recv.HasUnreadData() {
		offset, view, err := f.recv.Read(f.recv.BuffersNeeded())
		if err != nil || view.Len() == 0 {
			return
		}

		payload := []byte(view.String())
		if _, err := f.recv.Drain(uint64(view.Len())); err != nil {
			return
		}

		f.out <- f.toChunk(offset, payload, end && !f.recv.HasUnreadData(), observed)
	}
}

// reassemblyComplete flushes whatever remains in the receive buffer; the
// assembler will not invoke ReassembledSG again for this flow.
func (f *tcpFlow) reassemblyComplete() {
	f.drain(time.Now(), true)
}

func (f *tcpFlow) toChunk(offset uint64, payload []byte, end bool, observed time.Time) Chunk {
	srcE, dstE := f.netFlow.Endpoints()
	srcP, dstP := f.tcpFlow.Endpoints()

	return Chunk{
		StreamID:        f.streamID,
		SrcIP:           net.IP(srcE.Raw()),
		SrcPort:         int(binary.BigEndian.Uint16(srcP.Raw())),
		DstIP:           net.IP(dstE.Raw()),
		DstPort:         int(binary.BigEndian.Uint16(dstP.Raw())),
		Offset:          offset,
		Payload:         payload,
		End:             end,
		ObservationTime: observed,
	}
}

// tcpStream represents a pair of uni-directional tcpFlows and implements
// reassembly.Stream, directing reassembled data to the correct flow.
type tcpStream struct {
	streamID gid.ConnectionID // constant

	netFlow gopacket.Flow

	// flows is populated upon seeing the first packet.
	flows map[reassembly.TCPFlowDirection]*tcpFlow

	out  chan<- Chunk
	opts *Options
}

func newTCPStream(netFlow gopacket.Flow, out chan<- Chunk, opts *Options) *tcpStream {
	return &tcpStream{
		streamID: gid.GenerateConnectionID(),
		netFlow:  netFlow,
		out:      out,
		opts:     opts,
	}
}

func (s *tcpStream) Accept(tcp *layers.TCP, ci gopacket.CaptureInfo,
	dir reassembly.TCPFlowDirection, _ reassembly.Sequence,
	start *bool, _ reassembly.AssemblerContext) bool {
	// We always force the stream to start because we cannot guarantee we
	// will ever observe the SYN packet; without the forced start, the
	// assembler would hold the stream open forever waiting for one.
	*start = true

	if s.flows == nil {
		tf, _ := gopacket.FlowFromEndpoints(
			layers.NewTCPPortEndpoint(tcp.SrcPort),
			layers.NewTCPPortEndpoint(tcp.DstPort),
		)
		f1, err1 := newTCPFlow(s.streamID, s.netFlow, tf, s.out, s.opts)
		f2, err2 := newTCPFlow(s.streamID, s.netFlow.Reverse(), tf.Reverse(), s.out, s.opts)
		if err1 != nil || err2 != nil {
			// Couldn't provision receive buffers for either direction;
			// refuse the stream rather than accept packets we can't store.
			return false
		}
		s.flows = map[reassembly.TCPFlowDirection]*tcpFlow{
			dir:           f1,
			dir.Reverse(): f2,
		}
	}

	if len(tcp.Payload) == 0 {
		srcE, dstE := s.netFlow.Endpoints()
		s.out <- Chunk{
			StreamID:        s.streamID,
			SrcIP:           net.IP(srcE.Raw()),
			SrcPort:         int(tcp.SrcPort),
			DstIP:           net.IP(dstE.Raw()),
			DstPort:         int(tcp.DstPort),
			Control:         &ControlFlags{SYN: tcp.SYN, ACK: tcp.ACK, FIN: tcp.FIN, RST: tcp.RST},
			ObservationTime: ci.Timestamp,
		}
	}

	// Accept everything, even packets that might violate the TCP state
	// machine; we want to observe the dataflow regardless of whether a
	// real stack would have accepted it. reassembly guarantees in-order
	// delivery, so callers don't need to worry about reordering.
	return true
}

func (s *tcpStream) ReassembledSG(sg reassembly.ScatterGather, ac reassembly.AssemblerContext) {
	dir, _, _, _ := sg.Info()
	if f, ok := s.flows[dir]; ok {
		f.reassembled(sg, ac)
	}
}

func (s *tcpStream) ReassemblyComplete() bool {
	for _, f := range s.flows {
		f.reassemblyComplete()
	}
	// Remove the stream from the pool; we never need to hear from it again.
	return true
}
