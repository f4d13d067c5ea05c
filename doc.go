// Package rendezvous implements CSP-style channels for cooperating
// goroutines: a buffered or unbuffered rendezvous point, a multi-way
// select that commits exactly one of several pending operations, and
// a handful of workers (Merge, Duplicator, Publisher, Mux) built
// entirely out of that primitive.
//
// Unlike a native Go channel, a Chan here carries untyped values,
// supports four buffer overflow policies (fixed, dropping, sliding,
// promise), and can be the target of a Select whose case list is
// built at runtime rather than fixed at compile time.
package rendezvous
