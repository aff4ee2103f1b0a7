package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

const respTimeout = 5 * time.Second

// SerialGateway implements Transport over a serial-attached Zigbee gateway
// speaking the framed protocol in frame.go. One request may be in flight per
// sequence number; responses are correlated by echoed seq.
type SerialGateway struct {
	port   serial.Port
	reader *bufio.Reader
	logger *slog.Logger

	seq     atomic.Uint32
	pending map[uint8]chan []byte // seq -> response payload
	mu      sync.Mutex
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSerialGateway opens the serial port and starts the read loop.
func NewSerialGateway(portName string, baudRate int, logger *slog.Logger) (*SerialGateway, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("serial gateway: open %s: %w", portName, err)
	}

	// USB CDC ACM gateways want DTR/RTS asserted.
	_ = port.SetDTR(true)
	_ = port.SetRTS(true)

	g := newSerialGateway(port, logger)
	return g, nil
}

// newSerialGateway wires a gateway on an already-open port.
func newSerialGateway(port serial.Port, logger *slog.Logger) *SerialGateway {
	g := &SerialGateway{
		port:    port,
		reader:  bufio.NewReader(port),
		logger:  logger,
		pending: make(map[uint8]chan []byte),
		done:    make(chan struct{}),
	}
	g.wg.Add(1)
	go g.readLoop()
	return g
}

func (g *SerialGateway) nextSeq() uint8 {
	return uint8(g.seq.Add(1))
}

// request sends one framed request and waits for the matching response
// payload.
func (g *SerialGateway) request(ctx context.Context, msgType uint8, payload []byte) ([]byte, error) {
	seq := g.nextSeq()

	ch := make(chan []byte, 1)
	g.mu.Lock()
	g.pending[seq] = ch
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.pending, seq)
		g.mu.Unlock()
	}()

	frame := encodeFrame(seq, msgType, payload)
	g.writeMu.Lock()
	_, err := g.port.Write(frame)
	g.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("serial write: %w", err)
	}
	g.logger.Debug("gateway frame sent", "type", fmt.Sprintf("0x%02X", msgType), "seq", seq, "len", len(frame))

	select {
	case resp := <-ch:
		return resp, nil
	case <-time.After(respTimeout):
		return nil, fmt.Errorf("gateway response timeout (seq %d, type 0x%02X)", seq, msgType)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.done:
		return nil, fmt.Errorf("gateway closed")
	}
}

// readLoop reads flag-delimited frames and dispatches responses to waiters.
func (g *SerialGateway) readLoop() {
	defer g.wg.Done()
	for {
		raw, err := g.readFrame()
		if err != nil {
			select {
			case <-g.done:
				return
			default:
			}
			if err == io.EOF {
				g.logger.Warn("gateway serial EOF")
				return
			}
			g.logger.Warn("gateway read", "err", err)
			continue
		}
		if len(raw) == 0 {
			continue // back-to-back flags
		}

		seq, msgType, payload, err := decodeFrame(raw)
		if err != nil {
			g.logger.Warn("gateway frame discarded", "err", err)
			continue
		}
		if msgType&msgResponseBit == 0 {
			g.logger.Warn("unexpected request frame from gateway", "type", fmt.Sprintf("0x%02X", msgType))
			continue
		}

		g.mu.Lock()
		ch, ok := g.pending[seq]
		g.mu.Unlock()
		if !ok {
			g.logger.Debug("gateway response with no waiter", "seq", seq)
			continue
		}
		select {
		case ch <- payload:
		default:
		}
	}
}

// readFrame returns the raw (still escaped) bytes between two frame flags.
func (g *SerialGateway) readFrame() ([]byte, error) {
	// Skip to an opening flag.
	for {
		b, err := g.reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == frameFlag {
			break
		}
	}
	raw, err := g.reader.ReadBytes(frameFlag)
	if err != nil {
		return nil, err
	}
	return raw[:len(raw)-1], nil
}

// ReadAttributes implements Transport.
func (g *SerialGateway) ReadAttributes(ctx context.Context, req ReadRequest) ([]AttributeResponse, error) {
	resp, err := g.request(ctx, msgReadAttrs, encodeReadPayload(req))
	if err != nil {
		return nil, err
	}
	return decodeReadResponse(resp)
}

// WriteAttributes implements Transport.
func (g *SerialGateway) WriteAttributes(ctx context.Context, req WriteRequest) error {
	resp, err := g.request(ctx, msgWriteAttrs, encodeWritePayload(req))
	if err != nil {
		return err
	}
	return decodeStatusResponse(resp)
}

// WriteStructured implements Transport.
func (g *SerialGateway) WriteStructured(ctx context.Context, req WriteStructuredRequest) error {
	resp, err := g.request(ctx, msgWriteStructured, encodeWriteStructuredPayload(req))
	if err != nil {
		return err
	}
	return decodeStatusResponse(resp)
}

// SendCommand implements Transport.
func (g *SerialGateway) SendCommand(ctx context.Context, req CommandRequest) error {
	resp, err := g.request(ctx, msgClusterCommand, encodeCommandPayload(req))
	if err != nil {
		return err
	}
	return decodeStatusResponse(resp)
}

// Close stops the read loop and closes the port.
func (g *SerialGateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.done)
		err = g.port.Close()
		g.wg.Wait()
	})
	return err
}
