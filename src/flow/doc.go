// Package flow defines the state machine of the agreement flow and the
// objects a node uses to track flows: checkpoints and result handles.
//
// The initiator of a flow moves through Initiated, Proposed,
// CountersignRequested, VerifiedByCounterparty and Finalized. Any failure moves
// the flow to Rejected. The responder only records the states it observes.
// Every transition is captured in a Checkpoint, which can be encoded and
// inspected after the fact.
package flow
