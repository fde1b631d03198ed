package apicheck

// Version is populated at build time via ldflags.
var Version = "v0.0.0-in-progress"

// ToolVersion returns the checker's own version. In development it defaults to
// v0.0.0-in-progress.
func ToolVersion() string {
	return Version
}

// BaselineAPI is the TLS_API generation the baseline rules were written for.
func BaselineAPI() int64 {
	return APIVersion
}
