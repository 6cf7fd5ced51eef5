package routing

import "github.com/nerrad567/mixroute-core/internal/audio"

// MixInbound zeroes out and sums every route's source buffer into it.
// inputs maps source point IDs to their rendered buffers; routes whose
// source has no buffer are skipped.
func MixInbound(routes []*Route, inputs map[string][]float32, out []float32) {
	audio.Silence(out)
	for _, r := range routes {
		in, ok := inputs[r.SourceID()]
		if !ok {
			continue
		}
		r.MixInto(in, out)
	}
}

// MixInto renders the sum of all routes entering destinationID into out.
// The route list is snapshotted first, so the matrix lock is not held
// while samples are processed.
func (m *Matrix) MixInto(destinationID string, inputs map[string][]float32, out []float32) {
	MixInbound(m.RoutesTo(destinationID), inputs, out)
}
