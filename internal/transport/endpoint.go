package transport

import (
	"context"
	"fmt"
	"sort"

	"zigbee-go-setup/internal/zcl"
)

// Endpoint is a name-based view of one device endpoint. It resolves cluster,
// attribute and command names through the ZCL registry and encodes/decodes
// values, so callers deal in names and Go values rather than IDs and bytes.
type Endpoint struct {
	t        Transport
	registry *zcl.Registry
	addr     uint16
	ep       uint8
}

// NewEndpoint creates an endpoint view on a transport.
func NewEndpoint(t Transport, registry *zcl.Registry, addr uint16, ep uint8) *Endpoint {
	return &Endpoint{t: t, registry: registry, addr: addr, ep: ep}
}

// At returns a view of another endpoint on the same device.
func (e *Endpoint) At(ep uint8) *Endpoint {
	return &Endpoint{t: e.t, registry: e.registry, addr: e.addr, ep: ep}
}

// ID returns the endpoint number.
func (e *Endpoint) ID() uint8 { return e.ep }

func (e *Endpoint) cluster(name string) (*zcl.ClusterDef, error) {
	c := e.registry.GetByName(name)
	if c == nil {
		return nil, fmt.Errorf("unknown cluster %q", name)
	}
	return c, nil
}

// Read reads the named attributes and returns decoded values keyed by
// attribute name. Attributes whose read fails at the device (non-zero ZCL
// status) are omitted from the result; a transport failure is an error.
func (e *Endpoint) Read(ctx context.Context, cluster string, attrs []string) (map[string]interface{}, error) {
	c, err := e.cluster(cluster)
	if err != nil {
		return nil, err
	}

	var ids []uint16
	var opts Options
	defs := make(map[uint16]*zcl.AttributeDef, len(attrs))
	for _, name := range attrs {
		attr := c.FindAttributeByName(name)
		if attr == nil {
			return nil, fmt.Errorf("cluster %q has no attribute %q", cluster, name)
		}
		if attr.ManufacturerCode != 0 {
			if opts.ManufacturerCode != 0 && opts.ManufacturerCode != attr.ManufacturerCode {
				return nil, fmt.Errorf("mixed manufacturer codes in read of %q", cluster)
			}
			opts.ManufacturerCode = attr.ManufacturerCode
		}
		ids = append(ids, attr.ID)
		defs[attr.ID] = attr
	}

	responses, err := e.t.ReadAttributes(ctx, ReadRequest{
		Addr:      e.addr,
		Endpoint:  e.ep,
		ClusterID: c.ID,
		AttrIDs:   ids,
		Options:   opts,
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cluster, err)
	}

	result := make(map[string]interface{}, len(responses))
	for _, r := range responses {
		attr, ok := defs[r.AttrID]
		if !ok || r.Status != 0 {
			continue
		}
		val, _, err := zcl.DecodeValue(r.DataType, r.Value)
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", cluster, attr.Name, err)
		}
		result[attr.Name] = val
	}
	return result, nil
}

// Write writes the given attribute values in one request. Records are ordered
// by attribute ID so identical input always produces an identical request.
// A vendor attribute in the set marks the whole request manufacturer-specific.
func (e *Endpoint) Write(ctx context.Context, cluster string, values map[string]interface{}) error {
	c, err := e.cluster(cluster)
	if err != nil {
		return err
	}

	var records []WriteRecord
	var opts Options
	for name, val := range values {
		attr := c.FindAttributeByName(name)
		if attr == nil {
			return fmt.Errorf("cluster %q has no attribute %q", cluster, name)
		}
		if !attr.IsWritable() {
			return fmt.Errorf("attribute %s.%s is not writable", cluster, name)
		}
		if attr.ManufacturerCode != 0 {
			if opts.ManufacturerCode != 0 && opts.ManufacturerCode != attr.ManufacturerCode {
				return fmt.Errorf("mixed manufacturer codes in write of %q", cluster)
			}
			opts.ManufacturerCode = attr.ManufacturerCode
		}
		encoded, err := zcl.EncodeValue(attr.Type, val)
		if err != nil {
			return fmt.Errorf("encode %s.%s: %w", cluster, name, err)
		}
		records = append(records, WriteRecord{AttrID: attr.ID, DataType: attr.Type, Value: encoded})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].AttrID < records[j].AttrID })

	if err := e.t.WriteAttributes(ctx, WriteRequest{
		Addr:      e.addr,
		Endpoint:  e.ep,
		ClusterID: c.ID,
		Records:   records,
		Options:   opts,
	}); err != nil {
		return fmt.Errorf("write %s: %w", cluster, err)
	}
	return nil
}

// WriteStructured issues a structured write against the named cluster.
func (e *Endpoint) WriteStructured(ctx context.Context, cluster string, records []StructuredRecord) error {
	c, err := e.cluster(cluster)
	if err != nil {
		return err
	}
	if err := e.t.WriteStructured(ctx, WriteStructuredRequest{
		Addr:      e.addr,
		Endpoint:  e.ep,
		ClusterID: c.ID,
		Records:   records,
	}); err != nil {
		return fmt.Errorf("write structured %s: %w", cluster, err)
	}
	return nil
}

// Command sends the named cluster command with a raw payload.
func (e *Endpoint) Command(ctx context.Context, cluster, command string, payload []byte) error {
	c, err := e.cluster(cluster)
	if err != nil {
		return err
	}
	cmd := c.FindCommandByName(command)
	if cmd == nil {
		return fmt.Errorf("cluster %q has no command %q", cluster, command)
	}
	if err := e.t.SendCommand(ctx, CommandRequest{
		Addr:      e.addr,
		Endpoint:  e.ep,
		ClusterID: c.ID,
		CommandID: cmd.ID,
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("command %s.%s: %w", cluster, command, err)
	}
	return nil
}
