package node

import (
	"fmt"

	"github.com/mosaicnetworks/accord/src/net"
)

func (n *Node) processRPC(rpc net.RPC) {
	switch cmd := rpc.Command.(type) {
	case *net.ProposeRequest:
		n.metrics.rpcs.WithLabelValues("propose").Inc()
		n.processProposeRequest(rpc, cmd)
	case *net.FetchAttachmentsRequest:
		n.metrics.rpcs.WithLabelValues("fetch_attachments").Inc()
		n.processFetchAttachmentsRequest(rpc, cmd)
	case *net.FinalizeRequest:
		n.metrics.rpcs.WithLabelValues("finalize").Inc()
		n.processFinalizeRequest(rpc, cmd)
	default:
		n.logger.WithField("cmd", rpc.Command).Error("Unexpected RPC command")
		rpc.Respond(nil, fmt.Errorf("unexpected command"))
	}
}
