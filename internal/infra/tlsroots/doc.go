// Package tlsroots loads TLS material for rjournald and the rjournal
// remote client.
//
//   - roots.go: trusted CA pool for clients (system roots plus PEM files)
//   - reloader.go: server certificate that follows file changes via fsnotify
package tlsroots
