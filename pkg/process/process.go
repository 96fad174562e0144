// Package process builds launch specifications for the platform's child
// processes: the search engine and the web server. Nothing here starts a
// process; a launcher consumes the resulting commands.
package process

import (
    "errors"
    "os"
    "runtime"
)

var (
    ErrExecutableNotFound      = errors.New("process: executable not found")
    ErrMandatoryOptionOverride = errors.New("process: mandatory JVM option cannot be overridden")
)

// ProcessID identifies a child process role.
type ProcessID string

const (
    ProcessSearch ProcessID = "es"
    ProcessWeb    ProcessID = "web"
)

// Index is the stable ordinal of the process, passed to the child as
// process.index.
func (id ProcessID) Index() int {
    switch id {
    case ProcessSearch:
        return 1
    case ProcessWeb:
        return 2
    default:
        return 0
    }
}

func (id ProcessID) String() string { return string(id) }

// System is the read-only view of the parent process environment.
type System interface {
    Getenv(name string) string
    IsWindows() bool
}

type osSystem struct{}

func (osSystem) Getenv(name string) string { return os.Getenv(name) }
func (osSystem) IsWindows() bool           { return runtime.GOOS == "windows" }

// OS is the System of the current process.
var OS System = osSystem{}
