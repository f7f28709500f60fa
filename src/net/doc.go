// Package net implements the transports over which parties run agreement
// flows.
//
// A flow is made of three request/response exchanges: ProposeRequest from the
// initiator, FetchAttachmentsRequest from the responder back to the initiator
// while it handles the proposal, and FinalizeRequest from the initiator. There
// are two implementations of the Transport interface:
//
// - Inmem: in-memory transport used for testing
//
// - TCP: communicating over plain TCP
//
// TCP
//
// Each RPC request is framed by a byte indicating the message type, followed
// by the JSON encoded request. The response is a JSON error string followed by
// the JSON encoded response. Connections are pooled per target.
//
// The transport binds to a local address. AdvertiseAddr is the address other
// parties should use in their peers.json when the bind address is not
// reachable by them.
package net
