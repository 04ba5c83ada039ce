package graph

import "errors"

// ErrLayoutRunning is returned when a layout run is requested while another
// run holds the simulation.
var ErrLayoutRunning = errors.New("layout run already in progress")
