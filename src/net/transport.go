package net

// Transport provides an interface for network transports to allow a node to
// communicate with its counterparties.
type Transport interface {

	// Starts the transport listening
	Listen()

	// Consumer returns a channel that can be used to
	// consume and respond to RPC requests.
	Consumer() <-chan RPC

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// Propose, FetchAttachments, and Finalize send the appropriate RPC to the
	// target node.

	Propose(target string, args *ProposeRequest, resp *ProposeResponse) error

	FetchAttachments(target string, args *FetchAttachmentsRequest, resp *FetchAttachmentsResponse) error

	Finalize(target string, args *FinalizeRequest, resp *FinalizeResponse) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
