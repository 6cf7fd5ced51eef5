// Package vca implements VCA-style group control over channel faders.
//
// A Fader has its own volume. Linking it to a Group multiplies that volume
// by the group's level, and a muted group silences every member. Groups
// can nest: a group's level is the product of its own volume and every
// ancestor's, and any muted ancestor mutes the chain.
//
//	                   ┌──────────────┐
//	                   │ Group "All"  │  volume 0.8
//	                   └──────┬───────┘
//	                          │ parent
//	                   ┌──────┴───────┐
//	                   │ Group "Drums"│  volume 0.5, mute=false
//	                   └──────┬───────┘
//	             ┌────────────┼────────────┐
//	        ┌────┴────┐  ┌────┴────┐  ┌────┴────┐
//	        │ Kick 1.0│  │Snare 0.9│  │ OH  0.7 │   local volumes
//	        └─────────┘  └─────────┘  └─────────┘
//
//	effective(Snare) = 0.9 × 0.5 × 0.8 = 0.36
//
// A fader belongs to at most one group. Group.AddMember refuses a fader
// that already belongs elsewhere (ErrAlreadyGrouped); Manager.LinkFaderToGroup
// moves it instead.
//
// # Events
//
// Faders and groups created by a Manager report changes through
// Manager.OnEvent. An effective-volume event fires only when a fader's
// effective volume moves by more than 1e-6. Changes to managed objects are
// applied under the Manager's write lock and queued in that order; handlers
// run after every lock has been released, one event at a time, in queue
// order. A handler that changes a volume sees its own event after the
// current one finishes.
//
// # Thread Safety
//
// Volumes, mute flags, group membership pointers and parent pointers are
// atomics, so EffectiveVolume is lock-free and safe on the audio thread.
// Group membership sets are guarded by a per-group mutex; the Manager's
// fader and group tables by the Manager's own mutex. Lock order is
// Manager before Group.
package vca
