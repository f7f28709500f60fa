// Package common contains the error taxonomy shared by the stores, hex
// helpers, and loggers for tests.
package common
