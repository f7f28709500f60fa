package mocknet

import (
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/accord/src/net"
)

// SimTransport is a net.Transport whose requests go through the queue of a
// MockNetwork.
type SimTransport struct {
	network    *MockNetwork
	localAddr  string
	consumerCh chan net.RPC
	timeout    time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

func newSimTransport(network *MockNetwork, addr string, timeout time.Duration) *SimTransport {
	return &SimTransport{
		network:    network,
		localAddr:  addr,
		consumerCh: make(chan net.RPC, 16),
		timeout:    timeout,
		closed:     make(chan struct{}),
	}
}

// Listen implements the Transport interface.
func (s *SimTransport) Listen() {}

// Consumer implements the Transport interface.
func (s *SimTransport) Consumer() <-chan net.RPC {
	return s.consumerCh
}

// LocalAddr implements the Transport interface.
func (s *SimTransport) LocalAddr() string {
	return s.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (s *SimTransport) AdvertiseAddr() string {
	return s.localAddr
}

// Propose implements the Transport interface.
func (s *SimTransport) Propose(target string, args *net.ProposeRequest, resp *net.ProposeResponse) error {
	rpcResp, err := s.makeRPC(target, args)
	if err != nil {
		return err
	}

	out := rpcResp.Response.(*net.ProposeResponse)
	*resp = *out
	return nil
}

// FetchAttachments implements the Transport interface.
func (s *SimTransport) FetchAttachments(target string, args *net.FetchAttachmentsRequest, resp *net.FetchAttachmentsResponse) error {
	rpcResp, err := s.makeRPC(target, args)
	if err != nil {
		return err
	}

	out := rpcResp.Response.(*net.FetchAttachmentsResponse)
	*resp = *out
	return nil
}

// Finalize implements the Transport interface.
func (s *SimTransport) Finalize(target string, args *net.FinalizeRequest, resp *net.FinalizeResponse) error {
	rpcResp, err := s.makeRPC(target, args)
	if err != nil {
		return err
	}

	out := rpcResp.Response.(*net.FinalizeResponse)
	*resp = *out
	return nil
}

// makeRPC queues the request and waits for its response. The request counts as
// outstanding until the response arrives or the wait times out.
func (s *SimTransport) makeRPC(target string, args interface{}) (rpcResp net.RPCResponse, err error) {
	select {
	case <-s.closed:
		err = net.ErrTransportShutdown
		return
	default:
	}

	respCh := make(chan net.RPCResponse, 1)

	s.network.enqueue(&message{
		from:   s.localAddr,
		target: target,
		rpc: net.RPC{
			Command:  args,
			RespChan: respCh,
		},
	})
	defer s.network.responded()

	select {
	case rpcResp = <-respCh:
		if rpcResp.Error != nil {
			err = rpcResp.Error
		}
	case <-time.After(s.timeout):
		err = fmt.Errorf("command timed out")
	case <-s.closed:
		err = net.ErrTransportShutdown
	}
	return
}

// deliver hands a request to the consumer of the transport, or fails it if
// the transport is closed.
func (s *SimTransport) deliver(rpc net.RPC) {
	select {
	case s.consumerCh <- rpc:
	case <-s.closed:
		rpc.Respond(nil, net.ErrTransportShutdown)
	}
}

// Close implements the Transport interface.
func (s *SimTransport) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}
