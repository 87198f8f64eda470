// Package siochannel carries the message channel over socket.io so ranks can
// live in separate processes, or on separate hosts.
//
// The master runs a socket.io server and every worker connects to it as a
// client, authenticating with its rank and the run token. Each message tag
// travels as its own event whose single argument is a JSON frame
// {source, payload, first, last}. Only master-worker traffic is supported,
// which is all the dispatch protocol needs.
package siochannel
