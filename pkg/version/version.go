package version

// Version is the current tracekit release
const Version = "0.4.0"

// BuildVersion returns the version string for display
func BuildVersion() string {
	return "tracekit version " + Version
}

// UserAgent is sent by the HTTP transport with every request
func UserAgent() string {
	return "tracekit/" + Version
}
