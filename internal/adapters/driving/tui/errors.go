package tui

import "errors"

// ErrMissingSourceService is returned when the source service is not provided.
var ErrMissingSourceService = errors.New("tui: source service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
