// Package accord wires a complete accord node from a config.Config: key,
// peers, stores, TCP transport, node and HTTP service.
package accord
