package domain

import "errors"

// ErrUsernameTaken is the recognizable conflict a profile save reports when
// the username was claimed between the availability check and the save.
var ErrUsernameTaken = errors.New("username already taken")
