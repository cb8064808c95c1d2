package sh2

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// State is everything a save needs to resume a core bit-exactly. Host
// buffers, handlers and hooks are not part of it; they belong to whoever
// built the address space.
type State struct {
	R     [16]uint32
	PC    uint32
	PPC   uint32
	PR    uint32
	SR    uint32
	GBR   uint32
	VBR   uint32
	MACH  uint32
	MACL  uint32
	EA    uint32
	Delay uint32

	TestIRQ   bool
	Suspend   bool
	Lines     uint32 // asserted external lines, bit 16 is NMI
	Pending   uint32
	IntLevel  int32
	IntVector int32

	Cycles    uint32
	FrameBase uint32

	// on-chip register file, one long per 4 bytes of 0xfffffe00-0xffffffff
	Onchip [0x80]uint32

	FRC         uint16
	OCRA        uint16
	OCRB        uint16
	ICR         uint16
	FRCBase     uint32
	TimerActive bool
	TimerCycles uint32
	TimerBase   uint32

	DMAActive [2]bool
	DMACycles [2]uint32
	DMABase   [2]uint32
}

type stateHeader struct {
	Magic   [4]byte
	Version uint32
	Size    uint32
}

const stateVersion = 1

var stateMagic = [4]byte{'S', 'H', '2', 'S'}

// SaveState serializes the core's State.
func (c *Core) SaveState() ([]byte, error) {
	var body bytes.Buffer
	if err := struc.PackWithOrder(&body, &c.State, binary.BigEndian); err != nil {
		return nil, errors.Wrap(err, "packing core state")
	}
	var buf bytes.Buffer
	hdr := &stateHeader{Magic: stateMagic, Version: stateVersion, Size: uint32(body.Len())}
	if err := struc.PackWithOrder(&buf, hdr, binary.BigEndian); err != nil {
		return nil, errors.Wrap(err, "packing state header")
	}
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

// DecodeState parses a blob from SaveState without touching any core.
func DecodeState(p []byte) (*State, error) {
	r := bytes.NewReader(p)
	var hdr stateHeader
	if err := struc.UnpackWithOrder(r, &hdr, binary.BigEndian); err != nil {
		return nil, errors.Wrap(err, "reading state header")
	}
	if hdr.Magic != stateMagic {
		return nil, errors.Errorf("bad state magic %q", hdr.Magic[:])
	}
	if hdr.Version != stateVersion {
		return nil, errors.Errorf("unsupported state version %d", hdr.Version)
	}
	if int(hdr.Size) != r.Len() {
		return nil, errors.Errorf("state size mismatch: header says %d, have %d", hdr.Size, r.Len())
	}
	st := &State{}
	if err := struc.UnpackWithOrder(r, st, binary.BigEndian); err != nil {
		return nil, errors.Wrap(err, "unpacking core state")
	}
	return st, nil
}

// LoadState replaces the core's State with a blob from SaveState. The core is
// untouched when the blob is rejected.
func (c *Core) LoadState(p []byte) error {
	st, err := DecodeState(p)
	if err != nil {
		return err
	}
	c.SetState(st)
	return nil
}

// SetState installs a decoded state and drops the fetch cache.
func (c *Core) SetState(st *State) {
	c.State = *st
	c.fc.valid = false
}
