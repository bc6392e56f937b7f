package transport

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"
)

// tcpStreamFactory implements reassembly.StreamFactory.
type tcpStreamFactory struct {
	out  chan<- Chunk
	opts *Options
}

func newTCPStreamFactory(out chan<- Chunk, opts *Options) *tcpStreamFactory {
	return &tcpStreamFactory{out: out, opts: opts}
}

func (fact *tcpStreamFactory) New(netFlow, _ gopacket.Flow, _ *layers.TCP,
	_ reassembly.AssemblerContext) reassembly.Stream {
	return newTCPStream(netFlow, fact.out, fact.opts)
}
