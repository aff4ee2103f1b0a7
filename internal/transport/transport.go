// Package transport defines the attribute transport used to reach a remote
// device endpoint: attribute reads/writes, structured writes and cluster
// commands. Backend: a serial gateway speaking a framed request/response
// protocol (see serialgw.go).
package transport

import "context"

// Transport is the abstract interface to the device link.
type Transport interface {
	ReadAttributes(ctx context.Context, req ReadRequest) ([]AttributeResponse, error)
	WriteAttributes(ctx context.Context, req WriteRequest) error
	WriteStructured(ctx context.Context, req WriteStructuredRequest) error
	SendCommand(ctx context.Context, req CommandRequest) error
	Close() error
}

// Options carries per-request ZCL frame options.
type Options struct {
	// ManufacturerCode marks the request manufacturer-specific when non-zero.
	ManufacturerCode uint16
}

// ReadRequest specifies which attributes to read.
type ReadRequest struct {
	Addr      uint16
	Endpoint  uint8
	ClusterID uint16
	AttrIDs   []uint16
	Options   Options
}

// AttributeResponse holds a single attribute read result.
type AttributeResponse struct {
	AttrID   uint16
	Status   uint8
	DataType uint8
	Value    []byte
}

// WriteRequest specifies attributes to write.
type WriteRequest struct {
	Addr      uint16
	Endpoint  uint8
	ClusterID uint16
	Records   []WriteRecord
	Options   Options
}

// WriteRecord is a single attribute write.
type WriteRecord struct {
	AttrID   uint16
	DataType uint8
	Value    []byte
}

// WriteStructuredRequest writes attributes addressed by numeric ID with
// explicit element typing (newer firmware).
type WriteStructuredRequest struct {
	Addr      uint16
	Endpoint  uint8
	ClusterID uint16
	Records   []StructuredRecord
	Options   Options
}

// StructuredRecord is a single structured write. ElementData is the
// pre-encoded value body (for arrays: element type + count + elements).
type StructuredRecord struct {
	AttrID      uint16
	DataType    uint8
	ElementData []byte
}

// CommandRequest sends a cluster-specific command.
type CommandRequest struct {
	Addr      uint16
	Endpoint  uint8
	ClusterID uint16
	CommandID uint8
	Payload   []byte
	Options   Options
}
