// Package dispatch drives the campaign fan-out: resolve the eligible
// recipients, personalize the template for each one, and hand each message
// to the transport. One recipient's failure never blocks the rest of the
// batch; failures are accumulated and returned to the caller, which owns
// logging and counter persistence.
package dispatch
