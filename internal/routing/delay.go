package routing

// delayLine is a fixed-length interleaved FIFO used for latency
// compensation. Length is frames × channels samples.
//
// Not safe for concurrent use; only the audio thread calls process.
type delayLine struct {
	buf     []float32
	pos     int
	scratch []float32
}

func newDelayLine(frames, channels int) *delayLine {
	if frames <= 0 || channels <= 0 {
		return nil
	}
	return &delayLine{buf: make([]float32, frames*channels)}
}

// process pushes in through the line and writes the delayed samples to out.
// in and out may be the same slice.
func (d *delayLine) process(in, out []float32) {
	if len(d.buf) == 0 {
		copy(out, in)
		return
	}
	for i, x := range in {
		y := d.buf[d.pos]
		d.buf[d.pos] = x
		d.pos++
		if d.pos == len(d.buf) {
			d.pos = 0
		}
		out[i] = y
	}
}

// advance pushes in without producing output, keeping the line aligned
// while the route is muted.
func (d *delayLine) advance(in []float32) {
	if len(d.buf) == 0 {
		return
	}
	for _, x := range in {
		d.buf[d.pos] = x
		d.pos++
		if d.pos == len(d.buf) {
			d.pos = 0
		}
	}
}

// scratchBuf returns a scratch slice of at least n samples. It only
// allocates when the block size grows.
func (d *delayLine) scratchBuf(n int) []float32 {
	if cap(d.scratch) < n {
		d.scratch = make([]float32, n)
	}
	return d.scratch[:n]
}

func (d *delayLine) release() {
	d.buf = nil
	d.scratch = nil
	d.pos = 0
}
