//go:build !windows

package main

// enableVT is a no-op; other terminals already speak ANSI.
func enableVT() {}
