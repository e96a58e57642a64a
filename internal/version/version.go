package version

// Build information, set at link time
var (
	Name    = "sonet"
	Version = "0.3.0"
)
