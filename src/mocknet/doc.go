// Package mocknet runs several nodes in one process over a simulated network
// whose message delivery is controlled by the caller.
//
// Requests sent by nodes are queued. Nothing is delivered until RunNetwork is
// called, which delivers queued requests until the network is idle: no request
// is queued, no request awaits its response, and no flow started through
// MockNode.StartFlow is running. Tests start flows, run the network, then
// inspect the outcome without sleeping or polling.
package mocknet
