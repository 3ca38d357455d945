// Package links manages anonymous verification links.
//
// A link is a random token bound to one document. Resolving it runs a live
// reconciled verification and returns only public fields; escrowed key
// material never leaves through a link. Links can be disabled by their
// creator and may carry an expiry.
package links
