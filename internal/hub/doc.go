// Package hub implements the in-process broadcast hub that feeds the live
// analysis log.
//
// A Hub keeps the most recent log events in a bounded history and pushes each
// new event to every connected Observer. New observers never receive the
// history; they only see events published after they subscribe. Clients that
// want the backlog read Recent.
//
// Delivery to an observer never blocks the publisher. An observer whose queue
// is full, or whose stream has been closed, counts as disconnected and is
// removed after the broadcast pass without affecting delivery to the others.
//
// Reset empties the history and sends an events.Reset signal to every live
// observer. Observers stay subscribed across a reset.
package hub
