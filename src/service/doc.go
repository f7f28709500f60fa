// Package service exposes the HTTP API of an accord node.
//
// Reads:
//
//	GET /stats            node statistics
//	GET /peers            the peer-set
//	GET /states?type=     unconsumed states, AgreementState by default
//	GET /txs              recorded transactions
//	GET /tx/{id}          one recorded transaction
//	GET /attachments/{id} raw attachment bytes
//	GET /flows            latest checkpoint of every flow
//	GET /flows/{id}       checkpoints of one flow
//	GET /metrics          Prometheus metrics
//
// Commands:
//
//	POST /attachments     import the request body, returns its id
//	POST /agreements      run an agreement flow, returns the finalized transaction
package service
