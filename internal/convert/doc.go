// Package convert turns an OpenHands event history into a normalized chat
// transcript.
//
// The conversion is a single forward pass. At most one tool call is pending at
// any point; an observation is attached to the pending call and clears it, and
// an observation that arrives with nothing pending is dropped. Call ids are
// numbered call_1, call_2, ... per conversion.
package convert
