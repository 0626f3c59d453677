// Package utils provides small shared helpers for the mediguide system.
package utils

// Version is the mediguide build version.
// Overridden at build time via -ldflags "-X github.com/mediguideco/mediguide/pkg/utils.Version=v1.2.3"
var Version = "dev"

// Sha is the git commit the binary was built from, set via -ldflags.
var Sha = "unknown"

// Buildtime is the UTC build timestamp, set via -ldflags.
var Buildtime = "unknown"
