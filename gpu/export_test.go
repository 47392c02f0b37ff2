package gpu

// Buffer returns buffer i of the pair.
func (p *PingPong) Buffer(i int) ColorBuffer { return p.buffers[i] }
