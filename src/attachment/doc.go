// Package attachment implements content-addressed blob storage.
//
// Attachments are referenced from transactions by the hex SHA256 hash of their
// bytes. Importing the same bytes twice yields the same id and stores them
// once. Bytes received from another party are checked against the id they were
// requested by before being trusted.
package attachment
