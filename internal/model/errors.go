package model

import "github.com/pkg/errors"

// ErrDuplicate is returned by stores when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate key")
