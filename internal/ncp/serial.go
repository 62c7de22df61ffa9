package ncp

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// SerialLink implements Link over a ZBOSS NCP attached to a serial port
// (nRF52840 USB CDC ACM and compatible firmware).
type SerialLink struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
	logger *slog.Logger

	// HL-level request/response tracking (keyed by TSN).
	hlTSN     atomic.Uint32
	hlPending map[uint8]chan *zbossFrame
	hlMu      sync.Mutex

	// LL-level packet sequencing and ACK.
	llPktSeq uint8 // our 2-bit send sequence
	llSeqMu  sync.Mutex
	llAckCh  chan uint8
	writeMu  sync.Mutex

	indications chan Indication
	resetIndCh  chan struct{}

	info Info

	lifecycleMu sync.Mutex
	done        chan struct{}
	closeOnce   sync.Once
	closed      bool
	wg          sync.WaitGroup
}

// OpenSerial opens portName and starts a SerialLink on it.
func OpenSerial(portName string, baudRate int, logger *slog.Logger) (*SerialLink, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("ncp: open %s: %w", portName, err)
	}

	// USB CDC ACM: assert DTR/RTS for NCP firmware.
	_ = port.SetDTR(true)
	_ = port.SetRTS(true)

	return NewSerialLink(port, logger), nil
}

// NewSerialLink runs the ZBOSS protocol over an already open port.
func NewSerialLink(port io.ReadWriteCloser, logger *slog.Logger) *SerialLink {
	l := &SerialLink{
		port:        port,
		reader:      bufio.NewReader(port),
		logger:      logger,
		hlPending:   make(map[uint8]chan *zbossFrame),
		llAckCh:     make(chan uint8, 4),
		indications: make(chan Indication, 64),
		resetIndCh:  make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	l.wg.Add(1)
	go l.readLoop()
	return l
}

func (l *SerialLink) nextTSN() uint8 {
	return uint8(l.hlTSN.Add(1))
}

// nextPktSeq advances the LL packet sequence (cycles 1→2→3→1).
func (l *SerialLink) nextPktSeq() uint8 {
	l.llSeqMu.Lock()
	l.llPktSeq = l.llPktSeq%3 + 1
	seq := l.llPktSeq
	l.llSeqMu.Unlock()
	return seq
}

const (
	llACKTimeout  = 500 * time.Millisecond
	llMaxRetries  = 3
	hlRespTimeout = 5 * time.Second
)

// request sends an HL request and waits for the HL response.
func (l *SerialLink) request(ctx context.Context, callID uint16, payload []byte) (*zbossFrame, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hlRespTimeout)
		defer cancel()
	}
	tsn := l.nextTSN()

	ch := make(chan *zbossFrame, 1)
	l.hlMu.Lock()
	l.hlPending[tsn] = ch
	l.hlMu.Unlock()
	defer func() {
		l.hlMu.Lock()
		delete(l.hlPending, tsn)
		l.hlMu.Unlock()
	}()

	pktSeq := l.nextPktSeq()
	raw := zbossEncodeRequest(callID, tsn, pktSeq, payload)
	if err := l.writeWithACK(ctx, raw, pktSeq); err != nil {
		return nil, fmt.Errorf("ncp write cmd 0x%04X: %w", callID, err)
	}

	cmdName := zbossCmdName(callID)
	l.logger.Debug("zboss TX", "cmd", cmdName, "tsn", tsn, "payload", fmt.Sprintf("%X", payload))

	select {
	case resp, ok := <-ch:
		if !ok || resp == nil {
			return nil, ErrClosed
		}
		if resp.HL.StatusCat != 0 || resp.HL.StatusCode != 0 {
			status := zbossStatusName(resp.HL.StatusCat, resp.HL.StatusCode)
			l.logger.Warn("zboss RX", "cmd", cmdName, "tsn", tsn, "status", status)
			return resp, fmt.Errorf("zboss %s: %s", cmdName, status)
		}
		return resp, nil
	case <-ctx.Done():
		l.logger.Warn("zboss timeout", "cmd", cmdName, "tsn", tsn, "err", ctx.Err())
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrClosed
	}
}

// writeWithACK writes a raw ZBOSS frame and waits for LL ACK with retries.
func (l *SerialLink) writeWithACK(ctx context.Context, frame []byte, pktSeq uint8) error {
	for attempt := 0; attempt <= llMaxRetries; attempt++ {
		l.writeMu.Lock()
		_, err := l.port.Write(frame)
		l.writeMu.Unlock()
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}

		deadline := time.NewTimer(llACKTimeout)
	waitACK:
		for {
			select {
			case ackSeq := <-l.llAckCh:
				if ackSeq == pktSeq {
					deadline.Stop()
					return nil
				}
				l.logger.Debug("zboss LL stale ACK drained", "got", ackSeq, "want", pktSeq)
			case <-deadline.C:
				l.logger.Warn("zboss LL ACK timeout", "attempt", attempt+1, "pktSeq", pktSeq)
				break waitACK
			case <-ctx.Done():
				deadline.Stop()
				return ctx.Err()
			case <-l.done:
				deadline.Stop()
				return ErrClosed
			}
		}
	}
	return fmt.Errorf("zboss LL ACK timeout after %d retries", llMaxRetries+1)
}

func (l *SerialLink) sendACK(pktSeq uint8) {
	raw := zbossEncodeACK(pktSeq)
	l.writeMu.Lock()
	_, err := l.port.Write(raw)
	l.writeMu.Unlock()
	if err != nil {
		l.logger.Error("zboss send ACK failed", "err", err)
	}
}

func (l *SerialLink) readLoop() {
	defer l.wg.Done()
	defer close(l.indications)

	backoff := 10 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		select {
		case <-l.done:
			return
		default:
		}

		raw, err := readZBOSSFrame(l.reader)
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			if errors.Is(err, io.EOF) {
				// port gone for good
				l.logger.Warn("ncp serial EOF")
				return
			}
			if !strings.Contains(err.Error(), "closed") {
				l.logger.Error("ncp read error", "err", err)
			}
			select {
			case <-time.After(backoff):
			case <-l.done:
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = 10 * time.Millisecond

		frame, err := zbossDecodeFrame(raw)
		if err != nil {
			l.logger.Warn("zboss decode error", "err", err)
			continue
		}

		if zbossLLIsACK(frame.LL.Flags) {
			select {
			case l.llAckCh <- zbossLLAckSeq(frame.LL.Flags):
			default:
			}
			continue
		}
		l.sendACK(zbossLLPktSeq(frame.LL.Flags))

		switch frame.HL.PacketType {
		case zbossHLResponse:
			l.hlMu.Lock()
			ch, ok := l.hlPending[frame.HL.TSN]
			l.hlMu.Unlock()
			if ok {
				select {
				case ch <- frame:
				default:
				}
			} else {
				l.logger.Warn("zboss orphaned response",
					"cmd", zbossCmdName(frame.HL.CallID),
					"tsn", frame.HL.TSN,
					"status", zbossStatusName(frame.HL.StatusCat, frame.HL.StatusCode))
			}
		case zbossHLIndication:
			l.handleIndication(frame)
		}
	}
}

func (l *SerialLink) handleIndication(f *zbossFrame) {
	switch f.HL.CallID {
	case zbossCmdAPSDEDataInd:
		ind, err := parseAPSDEDataInd(f.Payload)
		if err != nil {
			l.logger.Warn("APSDE_DATA_IND dropped", "err", err)
			return
		}
		select {
		case l.indications <- ind:
		case <-l.done:
		}
	case zbossCmdNCPResetInd:
		l.logger.Warn("NCPResetInd received")
		select {
		case l.resetIndCh <- struct{}{}:
		default:
		}
	default:
		l.logger.Debug("zboss unhandled indication",
			"cmd", zbossCmdName(f.HL.CallID),
			"payload", fmt.Sprintf("%X", f.Payload))
	}
}

// Init queries the NCP module version.
func (l *SerialLink) Init(ctx context.Context) (Info, error) {
	resp, err := l.request(ctx, zbossCmdGetModuleVersion, nil)
	if err != nil {
		return Info{}, err
	}
	if len(resp.Payload) >= 12 {
		stack := binary.LittleEndian.Uint32(resp.Payload[4:8])
		l.info = Info{
			FWVersion:       binary.LittleEndian.Uint32(resp.Payload[0:4]),
			StackVersion:    fmt.Sprintf("%d.%d.%d.%d", (stack>>24)&0xFF, (stack>>16)&0xFF, (stack>>8)&0xFF, stack&0xFF),
			ProtocolVersion: binary.LittleEndian.Uint32(resp.Payload[8:12]),
		}
		l.logger.Info("NCP module version", "fw", l.info.FWVersion, "stack", l.info.StackVersion, "protocol", l.info.ProtocolVersion)
	}
	return l.info, nil
}

// Reset sends NCPReset and waits for the NCPResetInd that follows the reboot.
func (l *SerialLink) Reset(ctx context.Context) error {
	// After a process restart the NCP's expected LL sequence is unknown, so
	// the reset goes out with all three; only the matching one is accepted.
	tsn := l.nextTSN()
	for _, seq := range []uint8{1, 2, 3} {
		raw := zbossEncodeRequest(zbossCmdNCPReset, tsn, seq, []byte{zbossResetNoOption})
		l.writeMu.Lock()
		_, err := l.port.Write(raw)
		l.writeMu.Unlock()
		if err != nil {
			return fmt.Errorf("ncp reset: %w", err)
		}
	}
	l.llSeqMu.Lock()
	l.llPktSeq = 0
	l.llSeqMu.Unlock()
	select {
	case <-l.resetIndCh:
		l.logger.Info("NCPResetInd confirmed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// RegisterEndpoint sends AF_SET_SIMPLE_DESC for sd.
func (l *SerialLink) RegisterEndpoint(ctx context.Context, sd SimpleDescriptor) error {
	if _, err := l.request(ctx, zbossCmdAFSetSimpleDesc, buildSimpleDescPayload(sd)); err != nil {
		return fmt.Errorf("ncp register endpoint %d: %w", sd.Endpoint, err)
	}
	return nil
}

// Send issues APSDE_DATA_REQ. The HL TSN doubles as the request id.
func (l *SerialLink) Send(ctx context.Context, req DataRequest) (uint8, error) {
	resp, err := l.request(ctx, zbossCmdAPSDEDataReq, buildAPSDEDataReq(req))
	if err != nil {
		return 0, err
	}
	return resp.HL.TSN, nil
}

func (l *SerialLink) Indications() <-chan Indication { return l.indications }

// Info returns the version information read by Init.
func (l *SerialLink) Info() Info { return l.info }

// Close stops the link and waits for readLoop to exit.
func (l *SerialLink) Close() error {
	l.lifecycleMu.Lock()
	if l.closed {
		l.lifecycleMu.Unlock()
		return nil
	}
	l.closed = true
	l.closeOnce.Do(func() { close(l.done) })
	err := l.port.Close()
	l.lifecycleMu.Unlock()

	l.wg.Wait()

	l.hlMu.Lock()
	for tsn, ch := range l.hlPending {
		close(ch)
		delete(l.hlPending, tsn)
	}
	l.hlMu.Unlock()
	return err
}
