// Package cli turns command-line arguments and the optional config file
// into the immutable Config a session is built from.
//
// Values are layered: built-in defaults, then the TOML config file, then
// flags given on the command line.
package cli
