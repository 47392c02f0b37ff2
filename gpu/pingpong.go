package gpu

import "fmt"

// PingPong owns the two accumulation buffers. One is the write target and the
// other the read source; Flip is the only way their roles change.
type PingPong struct {
	dev       Device
	buffers   [2]ColorBuffer
	drawingTo int
}

// NewPingPong allocates two buffers of the canvas size.
func NewPingPong(dev Device, width, height int) (*PingPong, error) {
	p := &PingPong{dev: dev}
	for i := range p.buffers {
		buf, err := dev.NewColorBuffer(width, height)
		if err != nil {
			p.Release()
			return nil, fmt.Errorf("ping-pong buffer %d (%dx%d): %w", i, width, height, err)
		}
		p.buffers[i] = buf
	}
	return p, nil
}

// WriteTarget is the buffer the next sample is drawn into.
func (p *PingPong) WriteTarget() ColorBuffer { return p.buffers[p.drawingTo] }

// ReadSource is the last completed buffer.
func (p *PingPong) ReadSource() ColorBuffer { return p.buffers[1-p.drawingTo] }

// DrawingTo returns the index of the write target.
func (p *PingPong) DrawingTo() int { return p.drawingTo }

// Flip swaps the write and read roles.
func (p *PingPong) Flip() { p.drawingTo = 1 - p.drawingTo }

// Clear zeroes both buffers.
func (p *PingPong) Clear() {
	for _, buf := range p.buffers {
		p.dev.Clear(buf)
	}
}

// Release deletes both buffers. The pair must not be used afterwards.
func (p *PingPong) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			p.dev.DeleteColorBuffer(buf)
			p.buffers[i] = nil
		}
	}
}
