package dcc

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/matt0x6f/driftwood/internal/logger"
)

// ProgressEvent reports received bytes for an active transfer. Emission
// is throttled so a fast transfer does not flood the reactor queue.
type ProgressEvent struct {
	TransferID int
	Received   uint64
}

// CompletedEvent fires when a transfer finishes and its file is closed.
type CompletedEvent struct {
	TransferID int
	Path       string
	Received   uint64
}

// FailedEvent fires when a transfer aborts for any reason other than a
// local cancel.
type FailedEvent struct {
	TransferID int
	Err        error
}

const (
	dialTimeout      = 30 * time.Second
	readBufferSize   = 8192
	progressInterval = 250 * time.Millisecond
)

// receive dials the sender and pulls the file into path, acknowledging
// the running byte total after every read as the DCC protocol requires.
// A close of cancel (which also closes the socket from the cancelling
// side) ends the loop silently.
func (m *Manager) receive(id int, addr string, path string, size uint64, cancel chan struct{}) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		m.finish(id)
		m.queue <- FailedEvent{TransferID: id, Err: fmt.Errorf("connecting to sender: %w", err)}
		return
	}
	m.attach(id, conn)
	defer conn.Close()

	// A cancel can land while the dial is still in flight, before the
	// socket is attached. Bail out rather than pull bytes nobody wants.
	if cancelled(cancel) {
		m.finish(id)
		return
	}

	f, err := os.Create(path)
	if err != nil {
		m.finish(id)
		m.queue <- FailedEvent{TransferID: id, Err: fmt.Errorf("creating %s: %w", path, err)}
		return
	}
	defer f.Close()

	var (
		total      uint64
		readErr    error
		buf        = make([]byte, readBufferSize)
		ack        [4]byte
		lastReport time.Time
	)

	for total < size {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				m.finish(id)
				m.queue <- FailedEvent{TransferID: id, Err: fmt.Errorf("writing %s: %w", path, werr)}
				return
			}
			total += uint64(n)

			// Acknowledge the running total. Senders that ignore acks
			// exist, so a failed write here is not fatal.
			binary.BigEndian.PutUint32(ack[:], uint32(total))
			if _, aerr := conn.Write(ack[:]); aerr != nil {
				logger.Log.Debug().Int("transfer", id).Err(aerr).Msg("ack write failed")
			}

			if now := time.Now(); now.Sub(lastReport) >= progressInterval {
				lastReport = now
				m.queue <- ProgressEvent{TransferID: id, Received: total}
			}
		}
		if err != nil {
			readErr = err
			break
		}
		if n == 0 {
			break
		}
	}

	m.finish(id)
	if cancelled(cancel) {
		return
	}
	if total < size {
		if readErr != nil {
			m.queue <- FailedEvent{TransferID: id, Err: fmt.Errorf("transfer interrupted after %d of %d bytes: %w", total, size, readErr)}
		} else {
			m.queue <- FailedEvent{TransferID: id, Err: fmt.Errorf("sender closed early: got %d of %d bytes", total, size)}
		}
		return
	}
	m.queue <- CompletedEvent{TransferID: id, Path: path, Received: total}
}

func cancelled(cancel chan struct{}) bool {
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}
