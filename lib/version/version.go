// Package version holds the seqanim version.
package version

// Release builds override Version with -ldflags "-X seqanim/lib/version.Version=...".
var Version = "v0.1.0-HEAD"
