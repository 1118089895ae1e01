// Package version exposes build information injected at link time.
package version

// Values are set at build time using -ldflags.
var (
	Version   = "dev"
	Built     = ""
	GitCommit = ""
)

type Info struct {
	Version   string `json:"version"`
	Built     string `json:"built,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Built:     Built,
		GitCommit: GitCommit,
	}
}

// Summary renders a single-line version string for CLI output.
func (info Info) Summary() string {
	summary := "watchify " + info.Version
	if info.GitCommit != "" {
		summary += " (" + info.GitCommit + ")"
	}
	if info.Built != "" {
		summary += " built " + info.Built
	}
	return summary
}
