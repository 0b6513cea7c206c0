package mesh

import (
	"errors"
	"fmt"
)

// ErrPrecondition marks user actions rejected before any state change.
var ErrPrecondition = errors.New("precondition failed")

var (
	ErrEmptyText        = fmt.Errorf("%w: message text is empty", ErrPrecondition)
	ErrNoChannels       = fmt.Errorf("%w: no open connections, connect to at least one member first", ErrPrecondition)
	ErrEmptyMemberID    = fmt.Errorf("%w: member id is empty", ErrPrecondition)
	ErrSelfMember       = fmt.Errorf("%w: cannot add own id as member", ErrPrecondition)
	ErrDuplicateMember  = fmt.Errorf("%w: member already in group", ErrPrecondition)
	ErrEmptyGroupName   = fmt.Errorf("%w: group name is empty", ErrPrecondition)
	ErrEmptyTarget      = fmt.Errorf("%w: connect target is empty", ErrPrecondition)
	ErrConnectSelf      = fmt.Errorf("%w: cannot connect to own id", ErrPrecondition)
	ErrAlreadyConnected = fmt.Errorf("%w: already connected", ErrPrecondition)
	ErrNotConnected     = fmt.Errorf("%w: not connected", ErrPrecondition)
)

// ErrStopped is returned by Node commands once the event loop has exited.
var ErrStopped = errors.New("node stopped")
