// Package message defines the point-to-point contract shared by the master
// and the workers: the closed set of tags, the message envelope, the Channel
// interface every transport implements, and the handler table used at each
// receive point.
//
// Delivery guarantees are deliberately weak. Messages from one source with
// one tag arrive in the order they were sent; nothing is promised across
// sources, so receivers must accept any sender at any time.
package message
