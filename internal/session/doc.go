// Package session owns the lifecycle of scans submitted by one user session.
//
// A Controller holds exactly one State: Idle, InFlight or Settled. Submit
// moves Idle or Settled to InFlight and runs the scan in the background;
// a submission while InFlight is rejected with ErrBusy. Every submission is
// tagged with a monotonically increasing sequence number and a completion is
// applied only when its number is still the latest and the controller is
// still waiting for it, so a slow response can never overwrite a fresher
// state.
//
// Observers read the state with State, or receive every transition through
// Subscribe. Scan is the blocking form used by the command line.
package session
