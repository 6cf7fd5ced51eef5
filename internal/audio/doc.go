// Package audio defines the pull-based sample interface shared by the
// routing core and its DSP collaborators.
//
// A Source is anything the next stage in a signal chain can read samples
// from: a channel strip, a bus, an effect return or a sidechain tap. The
// routing core never renders audio itself; it only decides which Source
// feeds which destination and at what gain.
//
// Samples are interleaved float32, one frame per ChannelCount() samples.
//
// # Thread Safety
//
// Read is called from the real-time audio thread. Implementations must not
// block on I/O and should keep any locking short and bounded.
package audio
