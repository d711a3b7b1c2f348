// Package broker carries hub traffic between processes.
//
// A Sink accepts log events and reset signals; *hub.Hub is one. The NATS
// broker is a Sink that publishes onto a subject, and Bridge feeds whatever
// arrives on that subject into a local Sink. A deployment where every process
// publishes through NATS and bridges into its own hub gives every observer,
// on any replica, the complete trace of every run.
//
// Events travel in the envelope produced by events.ToJSON. Delivery is best
// effort, as it is within a single hub.
package broker
