package camera

import (
	"bufio"
	"context"
	"fmt"

	"go.bug.st/serial"
)

// SyncTrigger drives an external hardware shutter-sync device over a
// serial connection, generalizing the teacher's RadarPort (same
// open-port/line-scan/event-channel shape, a different device on the
// other end). Most deployments have no such device; a camera.Source
// only needs one when Capabilities().HasHardwareSync is true.
type SyncTrigger struct {
	port   serial.Port
	events chan string
}

// OpenSyncTrigger opens a serial port at the sync device's fixed baud
// rate and starts forwarding lines as trigger events.
func OpenSyncTrigger(portName string) (*SyncTrigger, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("camera: open sync trigger port %s: %w", portName, err)
	}
	return &SyncTrigger{port: port, events: make(chan string)}, nil
}

// Events yields one value per trigger pulse reported by the device.
func (t *SyncTrigger) Events() <-chan string { return t.events }

// Monitor scans lines from the serial port and forwards them until ctx
// is canceled or the port closes.
func (t *SyncTrigger) Monitor(ctx context.Context) error {
	scanner := bufio.NewScanner(t.port)
	for scanner.Scan() {
		select {
		case t.events <- scanner.Text():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// Close releases the underlying serial port.
func (t *SyncTrigger) Close() error {
	return t.port.Close()
}
