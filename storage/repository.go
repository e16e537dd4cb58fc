// Package storage provides the record storage abstraction behind the fuel
// catalog. Records are opaque JSON documents addressed by a record type and
// an ID within that type.
package storage

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// BatchTx provides writes within an atomic transaction.
type BatchTx interface {
	Put(recordType string, recordID string, data []byte) error
	Delete(recordType string, recordID string) error
}

// Repository defines the interface for record storage.
type Repository interface {
	Put(recordType string, recordID string, data []byte) error
	Get(recordType string, recordID string) ([]byte, error)
	// List returns the IDs of every record of recordType in unspecified order.
	List(recordType string) ([]string, error)
	Delete(recordType string, recordID string) error
	// Batch runs fn in a transaction. If fn returns an error no write made
	// through tx is kept.
	Batch(fn func(tx BatchTx) error) error
}
