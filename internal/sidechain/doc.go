// Package sidechain distributes control signals to dynamics effects.
//
// A sidechain route maps a named source (a kick drum, a vocal bus) to a
// named target effect (a compressor's key input). The route carries an
// optional live audio.Source, an optional Effect reference, a gain and an
// active flag. The Matrix keeps an effect → route index so the processing
// chain can ask "what keys this compressor?" in one map lookup.
//
// The overlay is independent of the routing graph: sidechain routes are
// not edges in routing.Matrix and take no part in feedback detection.
//
// A Bus is a continuously-read tap that conditions a signal for detection:
//
//	input ─▶ ×input gain ─▶ [one-pole HPF] ─┬─▶ output (Read)
//	                                        ├─▶ envelope (attack/release)
//	                                        ├─▶ peak (instant attack, ×decay/buffer)
//	                                        └─▶ RMS (windowed)
//
// BusManager deduplicates buses by explicit bus ID.
//
// # Thread Safety
//
// Matrix, Route, Bus and BusManager are safe for concurrent use.
// GetSidechainFor takes only short read locks and is intended for the audio
// thread. Bus.Read pulls from its input without holding the bus lock.
package sidechain
