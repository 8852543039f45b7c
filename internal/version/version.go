package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/chenwangji/minipack/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string {
	s := "minipack " + i.Version
	if i.GitCommit != "" && i.GitCommit != "unknown" {
		s += " (" + i.GitCommit + ")"
	}
	return s
}
