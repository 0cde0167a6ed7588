// Package boop smooths per-field numeric targets with a second-order spring.
//
// Each smoothed field has a Field state machine:
//
//	Uninitialized --first target--> Direct (Noop or reset) | Springing (ODE)
//	Direct        --ODE filter-----> Springing, starting from the last direct value
//	Springing     --Noop or reset--> Direct
//
// The ODE filter integrates y'' toward the target with frequency f, damping z
// and response r, using the semi-implicit step with a stabilized k2 floor so
// large frame gaps stay bounded. If integration ever produces a non-finite
// position or velocity, the state is hard-reset to the target and the step
// reports weird=true. The next step is normal again.
//
// Fields are addressed by dotted paths ("pos.x", "items.3.color.h"). A Config
// picks the filter per path by longest dotted-prefix override. Paths are
// NFC-normalized so visually identical names from different editors match.
//
// A Bank owns the fields of one record. It is not safe for concurrent use;
// spring state belongs to exactly one record and one frame loop.
package boop
