package memory

import "errors"

var errDuplicate = errors.New("duplicate key")
