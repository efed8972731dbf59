//go:build !windows

package main

// No console window to hide outside Windows.
func hideAndDetachConsoleForGUI() {}
