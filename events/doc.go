// Package events defines the progress events that flow from an analysis run to the
// observers watching it.
//
// Event hierarchy:
//   - Event: Base interface for everything an observer can receive
//     ├── LogEvent: A timestamped progress entry (info, step or result)
//     └── Reset: Tells observers to discard whatever they have accumulated
//
// A LogEvent is a plain value. Once it has been handed to a publisher it is never
// modified; the hub stamps the timestamp on its own copy when the publisher left it
// empty.
//
// Kinds:
//   - info: Something was identified or retrieved (a company, a list of sources)
//   - step: The run is about to do something, or a step failed
//   - result: The run produced its answer
//
// Wire format:
//
// LogEvent marshals to the shape the log panel consumes:
//
//	{"timestamp":"2024-11-02T10:00:00.000Z","type":"step","message":"Identifying company..."}
//
// ToJSON and FromJSON wrap both event types in an envelope with an "event"
// discriminator so they can share a single transport subject:
//
//	{"event":"log","timestamp":"...","type":"info","message":"..."}
//	{"event":"reset","timestamp":"..."}
//
// Example usage:
//
//	pub.Publish(ctx, events.Step("Gathering financial data from web sources..."))
//	pub.Publish(ctx, events.Infof("Found %d relevant sources", n))
package events
