package ring_buffer

type bufImpl struct {
	buffer []int16
	head   int
	filled int
}

func New(size int) *bufImpl {
	return &bufImpl{
		buffer: make([]int16, size),
		head:   0,
	}
}

func (r *bufImpl) Add(samples []int16) {
	for _, s := range samples {
		r.buffer[r.head] = s
		r.head = (r.head + 1) % len(r.buffer)

		if r.filled < len(r.buffer) {
			r.filled++
		}
	}
}

// Read returns the buffered samples oldest-first. Only samples actually
// written are returned, so a freshly created buffer reads back empty.
func (r *bufImpl) Read() []int16 {
	samples := make([]int16, r.filled)

	start := r.head - r.filled
	if start < 0 {
		start += len(r.buffer)
	}

	for i := 0; i < r.filled; i++ {
		samples[i] = r.buffer[(start+i)%len(r.buffer)]
	}

	return samples
}

func (r *bufImpl) Len() int {
	return r.filled
}

func (r *bufImpl) Clear() {
	for i := 0; i < len(r.buffer); i++ {
		r.buffer[i] = 0
	}

	r.head = 0
	r.filled = 0
}
