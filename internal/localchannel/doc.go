// Package localchannel provides an in-process implementation of
// message.Channel. Every rank is a goroutine in the same process and owns an
// unbounded mailbox; Send appends to the target's mailbox and Receive pops
// from the caller's own.
package localchannel
