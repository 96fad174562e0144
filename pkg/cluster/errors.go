package cluster

import "errors"

var (
    ErrNotStarted  = errors.New("cluster: not started")
    ErrStandalone  = errors.New("cluster: node is standalone")
    ErrUnreachable = errors.New("cluster: unreachable")
)
