package cmd

// version is set at build time using -ldflags.
var version = "dev"

// Version returns the build version of toolhostd.
func Version() string {
	return version
}
