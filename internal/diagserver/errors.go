package diagserver

import "errors"

var errInvalidAddress = errors.New("invalid hex address")
