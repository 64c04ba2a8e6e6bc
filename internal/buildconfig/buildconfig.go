package buildconfig

// Build-time variables injected via ldflags:
//
//	-ldflags "-X github.com/Harshitk-cp/docrelay/internal/buildconfig.version=v1.2.0 -X ...commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// ClientName identifies this build to external systems such as the NATS server.
func ClientName() string {
	return "docrelay/" + version
}

// VersionInfo returns full version information
func VersionInfo() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
	}
}
