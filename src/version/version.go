package version

// Version is overridden at build time via -ldflags "-X artifact-collector/src/version.Version=...".
var Version = "dev"
