// Package version reports verbsrx build information.
//
// Release builds may stamp the commit via -ldflags:
//
//	-X github.com/usnistgov/verbsrx/core/version.commit=<sha1>
//	-X github.com/usnistgov/verbsrx/core/version.date=<unix-seconds>
//	-X github.com/usnistgov/verbsrx/core/version.dirty=1
//
// Otherwise, VCS information recorded by the Go toolchain is used.
package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"time"
)

var (
	commit string
	date   string
	dirty  string
)

// Version contains build information.
type Version struct {
	Version string    `json:"version"`
	Commit  string    `json:"commit"`
	Date    time.Time `json:"date"`
	Dirty   bool      `json:"dirty"`
}

func (v Version) String() string {
	return v.Version
}

// Make constructs Version from a commit hash and its time.
// It returns false if commit is not a full SHA-1 hash.
func Make(commit string, date time.Time, dirty bool) (v Version, ok bool) {
	if len(commit) != 40 {
		return Version{
			Version: "development",
			Commit:  "unknown",
			Date:    time.Now().UTC(),
			Dirty:   true,
		}, false
	}

	v = Version{Commit: commit, Date: date.UTC(), Dirty: dirty}
	v.Version = fmt.Sprintf("v0.0.0-%s-%s", v.Date.Format("20060102150405"), commit[:12])
	if dirty {
		v.Version += "-dirty"
	}
	return v, true
}

func fromLdflags() (Version, bool) {
	sec, e := strconv.ParseInt(date, 10, 64)
	if e != nil {
		return Version{}, false
	}
	return Make(commit, time.Unix(sec, 0), dirty != "")
}

func fromBuildInfo() Version {
	settings := map[string]string{}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, kv := range bi.Settings {
			settings[kv.Key] = kv.Value
		}
	}
	dt, _ := time.Parse(time.RFC3339, settings["vcs.time"])
	v, _ := Make(settings["vcs.revision"], dt, settings["vcs.modified"] == "true")
	return v
}

// V is the version of the running binary.
var V = func() Version {
	if v, ok := fromLdflags(); ok {
		return v
	}
	return fromBuildInfo()
}()
