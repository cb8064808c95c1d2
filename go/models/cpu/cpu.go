package cpu

// Cpu is the minimum surface the debugger, tracer and monitor need from an
// emulated core. Execution itself is driven by the owner of the core.
type Cpu interface {
	// register IO
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, val uint64) error

	// memory IO, routed through the core's address space
	MemRead(addr, size uint64) ([]byte, error)
	MemWrite(addr uint64, p []byte) error

	// requests a stop before the next instruction executes
	Stop() error

	// hooks
	HookAdd(htype int, cb interface{}, begin, end uint64, extra ...int) (Hook, error)
	HookDel(hook Hook) error
}

// Fetcher is implemented by cores whose instruction fetches can resolve
// differently from data reads of the same address.
type Fetcher interface {
	Fetch16(addr uint32) uint16
}
