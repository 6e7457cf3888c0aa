package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set through -ldflags "-X"; empty values fall back to the embedded VCS stamp.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

func String() string {
	commit, date := Commit, Date
	if commit == "" || date == "" {
		vcsCommit, vcsDate := vcsStamp()
		if commit == "" {
			commit = vcsCommit
		}
		if date == "" {
			date = vcsDate
		}
	}
	return fmt.Sprintf("liveosc %s (commit=%s, date=%s, go=%s)", Version, orUnknown(commit), orUnknown(date), runtime.Version())
}

func vcsStamp() (commit, date string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case "vcs.time":
			date = setting.Value
		}
	}
	return commit, date
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
