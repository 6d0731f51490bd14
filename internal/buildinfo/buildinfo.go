// Package buildinfo carries release metadata stamped at link time:
//
//	go build -ldflags "-X github.com/2lenet/sulu/internal/buildinfo.Version=v1.2.0"
//
// All values are empty for development builds.
package buildinfo

var (
	Version = ""
	Commit  = ""
	Date    = ""
)
