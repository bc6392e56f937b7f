package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"
)

// Pipeline feeds captured TCP packets through a gopacket reassembly.Assembler
// and forwards each stream's reassembled bytes into a per-flow recvbuf.Buffer,
// emitting the drained, in-order chunks on the channel returned by Run.
//
// This package demonstrates the receive buffer's real calling convention; it
// does not itself parse application protocols out of the reassembled bytes.
type Pipeline struct {
	opts Options
	out  chan Chunk
}

// NewPipeline constructs a Pipeline. opt defaults as documented by NewOptions.
func NewPipeline(opt ...Option) *Pipeline {
	opts := NewOptions()
	for _, o := range opt {
		o(&opts)
	}
	return &Pipeline{opts: opts, out: make(chan Chunk, 100)}
}

// Run starts assembling packets arriving on the packets channel and returns
// the channel of drained Chunks. The returned channel is closed once packets
// is closed (or ctx is canceled) and every stream has been flushed.
func (p *Pipeline) Run(ctx context.Context, packets <-chan gopacket.Packet) <-chan Chunk {
	streamFactory := newTCPStreamFactory(p.out, &p.opts)
	streamPool := reassembly.NewStreamPool(streamFactory)
	assembler := reassembly.NewAssembler(streamPool)

	assembler.AssemblerOptions.MaxBufferedPagesTotal = p.opts.MaxBufferedPagesTotal
	assembler.AssemblerOptions.MaxBufferedPagesPerConnection = p.opts.MaxBufferedPagesPerConnection

	streamFlushTimeout := time.Duration(p.opts.StreamFlushTimeout) * time.Second
	streamCloseTimeout := time.Duration(p.opts.StreamCloseTimeout) * time.Second

	go func() {
		ticker := time.NewTicker(streamFlushTimeout / 4)
		defer ticker.Stop()
		defer close(p.out)

		for {
			select {
			case <-ctx.Done():
				// Not safe to call from a defer: FlushAll can run while the
				// assembler holds internal locks on abnormal exit.
				assembler.FlushAll()
				return

			case packet, more := <-packets:
				if !more || packet == nil {
					assembler.FlushAll()
					return
				}
				p.assemble(assembler, packet)

			case <-ticker.C:
				now := time.Now()
				flushed, closed := assembler.FlushWithOptions(reassembly.FlushOptions{
					T:  now.Add(-streamFlushTimeout),
					TC: now.Add(-streamCloseTimeout),
				})
				if flushed != 0 || closed != 0 {
					fmt.Printf("%d flushed, %d closed\n", flushed, closed)
				}
			}
		}
	}()

	return p.out
}

func (p *Pipeline) assemble(assembler *reassembly.Assembler, packet gopacket.Packet) {
	defer func() {
		// A panic during packet handling must not crash the whole pipeline.
		if err := recover(); err != nil {
			fmt.Println("packet handling:", err)
		}
	}()

	if packet.NetworkLayer() == nil {
		return
	}

	t, ok := packet.TransportLayer().(*layers.TCP)
	if !ok {
		return
	}

	assembler.AssembleWithContext(packet.NetworkLayer().NetworkFlow(), t,
		contextFromTCPPacket(packet, t))
}
