package cpu

// hook types keep Unicorn's numbering so existing scripts stay valid
const (
	// hook CPU exception entry, including interrupts and TRAPA
	HOOK_INTR = 1

	// hook each executed instruction
	HOOK_CODE = 4

	// hook each taken control transfer
	HOOK_BLOCK = 8

	// hook (after) each data memory read/write
	HOOK_MEM_READ  = 1024
	HOOK_MEM_WRITE = 2048
)

// these constants are used in a hook to specify the type of memory access
const (
	MEM_WRITE = 16
	MEM_READ  = 17
	MEM_FETCH = 18
)
