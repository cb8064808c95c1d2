package models

import "io"

// Op is one record of an execution trace. Pack writes exactly Sizeof bytes,
// Unpack reads the record body after its leading type byte.
type Op interface {
	Sizeof() int
	Pack(p []byte)
	Unpack(r io.Reader) (int, error)
}
