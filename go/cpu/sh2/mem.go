package sh2

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

const (
	pageShift = 16
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
	pageCount = 1 << (32 - pageShift)

	// MaxHandlers is the number of handler slots per access width and direction.
	MaxHandlers = 8

	// regions below this address repeat every mirrorStride bytes, eight times
	mirrorLimit  = 0x08000000
	mirrorStride = 0x08000000 >> pageShift
	mirrorCount  = 8

	// HandlerOpenBus and HandlerInternal are installed by every core; drivers
	// normally map 0-5.
	HandlerOpenBus  = 6
	HandlerInternal = 7

	openBus8  = 0xa5
	openBus16 = 0xa5a5
	openBus32 = 0xa5a5a5a5
)

// Access kinds for MapMemory and MapHandler.
const (
	MapRead = 1 << iota
	MapWrite
	MapFetch

	MapAll = MapRead | MapWrite | MapFetch
)

var (
	ErrBadRange     = errors.New("sh2: mapping end precedes start")
	ErrShortBuffer  = errors.New("sh2: backing buffer smaller than mapped range")
	ErrHandlerIndex = errors.New("sh2: handler index out of range")
)

type (
	ReadByteHandler  func(addr uint32) uint8
	ReadWordHandler  func(addr uint32) uint16
	ReadLongHandler  func(addr uint32) uint32
	WriteByteHandler func(addr uint32, v uint8)
	WriteWordHandler func(addr uint32, v uint16)
	WriteLongHandler func(addr uint32, v uint32)
)

const (
	tableRead = iota
	tableWrite
	tableFetch
	tableCount
)

type slotKind uint8

const (
	kindHandler slotKind = iota
	kindMemory
)

// pageSlot routes one 64KiB page either to a handler index or into a host
// buffer. base is the buffer offset of the page's first address and goes
// negative when a mapping starts mid-page.
type pageSlot struct {
	kind  slotKind
	index uint16
	base  int64
}

// AddressSpace is the 32-bit bus of one core. Memory is stored big-endian, in
// target byte order, so a buffer can be shared with other chips as-is.
type AddressSpace struct {
	tables  [tableCount][]pageSlot
	regions [][]byte
	// bumped on every remap so cached fetch pages can be revalidated
	gen uint32

	readByte  [MaxHandlers]ReadByteHandler
	readWord  [MaxHandlers]ReadWordHandler
	readLong  [MaxHandlers]ReadLongHandler
	writeByte [MaxHandlers]WriteByteHandler
	writeWord [MaxHandlers]WriteWordHandler
	writeLong [MaxHandlers]WriteLongHandler
}

func openRead8(uint32) uint8     { return openBus8 }
func openRead16(uint32) uint16   { return openBus16 }
func openRead32(uint32) uint32   { return openBus32 }
func openWrite8(uint32, uint8)   {}
func openWrite16(uint32, uint16) {}
func openWrite32(uint32, uint32) {}

// NewAddressSpace returns a bus where every address reads open-bus fill and
// every write is dropped.
func NewAddressSpace() *AddressSpace {
	s := &AddressSpace{}
	for i := 0; i < MaxHandlers; i++ {
		s.readByte[i] = openRead8
		s.readWord[i] = openRead16
		s.readLong[i] = openRead32
		s.writeByte[i] = openWrite8
		s.writeWord[i] = openWrite16
		s.writeLong[i] = openWrite32
	}
	for t := range s.tables {
		slots := make([]pageSlot, pageCount)
		for i := range slots {
			slots[i] = pageSlot{kind: kindHandler, index: HandlerOpenBus}
		}
		s.tables[t] = slots
	}
	return s
}

func (s *AddressSpace) region(mem []byte) (uint16, error) {
	for i, r := range s.regions {
		if len(r) == len(mem) && (len(r) == 0 || &r[0] == &mem[0]) {
			return uint16(i), nil
		}
	}
	if len(s.regions) > 0xffff {
		return 0, errors.New("sh2: too many mapped regions")
	}
	s.regions = append(s.regions, mem)
	return uint16(len(s.regions) - 1), nil
}

// fill writes slot into every page of [start, end] for the requested kinds,
// including the low-region mirrors.
func (s *AddressSpace) fill(start, end uint32, kinds int, slot pageSlot) {
	for page := uint64(start &^ pageMask); page <= uint64(end); page += pageSize {
		p := slot
		if p.kind == kindMemory {
			p.base = int64(page) - int64(start)
		}
		idx := int(page >> pageShift)
		for t := 0; t < tableCount; t++ {
			if kinds&(1<<t) == 0 {
				continue
			}
			s.tables[t][idx] = p
			if start < mirrorLimit {
				for k := 1; k < mirrorCount; k++ {
					if m := idx + k*mirrorStride; m < pageCount {
						s.tables[t][m] = p
					}
				}
			}
		}
	}
	s.gen++
}

// MapMemory backs [start, end] with mem for the given access kinds. Byte i of
// mem is the byte at address start+i. Pages already mapped are overwritten.
func (s *AddressSpace) MapMemory(mem []byte, start, end uint32, kinds int) error {
	if end < start {
		return errors.Wrapf(ErrBadRange, "map %#x-%#x", start, end)
	}
	if uint64(len(mem)) < uint64(end-start)+1 {
		return errors.Wrapf(ErrShortBuffer, "map %#x-%#x with %#x bytes", start, end, len(mem))
	}
	idx, err := s.region(mem)
	if err != nil {
		return err
	}
	s.fill(start, end, kinds, pageSlot{kind: kindMemory, index: idx})
	return nil
}

// MapHandler routes [start, end] to handler slot index for the given access
// kinds. Fetches from a handler page go through the read-word handler.
func (s *AddressSpace) MapHandler(index int, start, end uint32, kinds int) error {
	if index < 0 || index >= MaxHandlers {
		return errors.Wrapf(ErrHandlerIndex, "handler %d", index)
	}
	if end < start {
		return errors.Wrapf(ErrBadRange, "map %#x-%#x", start, end)
	}
	s.fill(start, end, kinds, pageSlot{kind: kindHandler, index: uint16(index)})
	return nil
}

func checkIndex(i int) error {
	if i < 0 || i >= MaxHandlers {
		return errors.Wrapf(ErrHandlerIndex, "handler %d", i)
	}
	return nil
}

// The Set*Handler methods install a callback in slot i. A nil callback
// restores open-bus behavior.

func (s *AddressSpace) SetReadByteHandler(i int, fn ReadByteHandler) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if fn == nil {
		fn = openRead8
	}
	s.readByte[i] = fn
	return nil
}

func (s *AddressSpace) SetReadWordHandler(i int, fn ReadWordHandler) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if fn == nil {
		fn = openRead16
	}
	s.readWord[i] = fn
	return nil
}

func (s *AddressSpace) SetReadLongHandler(i int, fn ReadLongHandler) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if fn == nil {
		fn = openRead32
	}
	s.readLong[i] = fn
	return nil
}

func (s *AddressSpace) SetWriteByteHandler(i int, fn WriteByteHandler) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if fn == nil {
		fn = openWrite8
	}
	s.writeByte[i] = fn
	return nil
}

func (s *AddressSpace) SetWriteWordHandler(i int, fn WriteWordHandler) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if fn == nil {
		fn = openWrite16
	}
	s.writeWord[i] = fn
	return nil
}

func (s *AddressSpace) SetWriteLongHandler(i int, fn WriteLongHandler) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if fn == nil {
		fn = openWrite32
	}
	s.writeLong[i] = fn
	return nil
}

// hostSlice resolves a memory slot for addr, returning nil when the access
// falls outside the backing buffer.
func (s *AddressSpace) hostSlice(p *pageSlot, addr uint32, size int64) []byte {
	mem := s.regions[p.index]
	i := p.base + int64(addr&pageMask)
	if i < 0 || i+size > int64(len(mem)) {
		return nil
	}
	return mem[i : i+size]
}

func (s *AddressSpace) Read8(addr uint32) uint8 {
	p := &s.tables[tableRead][addr>>pageShift]
	if p.kind == kindHandler {
		return s.readByte[p.index](addr)
	}
	if b := s.hostSlice(p, addr, 1); b != nil {
		return b[0]
	}
	return openBus8
}

// Read16 and Read32 ignore the low address bits for memory pages; the core
// never issues misaligned accesses.
func (s *AddressSpace) Read16(addr uint32) uint16 {
	p := &s.tables[tableRead][addr>>pageShift]
	if p.kind == kindHandler {
		return s.readWord[p.index](addr)
	}
	if b := s.hostSlice(p, addr&^1, 2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return openBus16
}

func (s *AddressSpace) Read32(addr uint32) uint32 {
	p := &s.tables[tableRead][addr>>pageShift]
	if p.kind == kindHandler {
		return s.readLong[p.index](addr)
	}
	if b := s.hostSlice(p, addr&^3, 4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return openBus32
}

func (s *AddressSpace) Write8(addr uint32, v uint8) {
	p := &s.tables[tableWrite][addr>>pageShift]
	if p.kind == kindHandler {
		s.writeByte[p.index](addr, v)
	} else if b := s.hostSlice(p, addr, 1); b != nil {
		b[0] = v
	}
}

func (s *AddressSpace) Write16(addr uint32, v uint16) {
	p := &s.tables[tableWrite][addr>>pageShift]
	if p.kind == kindHandler {
		s.writeWord[p.index](addr, v)
	} else if b := s.hostSlice(p, addr&^1, 2); b != nil {
		binary.BigEndian.PutUint16(b, v)
	}
}

func (s *AddressSpace) Write32(addr uint32, v uint32) {
	p := &s.tables[tableWrite][addr>>pageShift]
	if p.kind == kindHandler {
		s.writeLong[p.index](addr, v)
	} else if b := s.hostSlice(p, addr&^3, 4); b != nil {
		binary.BigEndian.PutUint32(b, v)
	}
}

// Fetch16 reads an instruction word through the fetch table.
func (s *AddressSpace) Fetch16(addr uint32) uint16 {
	p := &s.tables[tableFetch][addr>>pageShift]
	if p.kind == kindHandler {
		return s.readWord[p.index](addr)
	}
	if b := s.hostSlice(p, addr&^1, 2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return openBus16
}

// fetchPage returns the buffer and base of a memory-backed fetch page, or
// ok=false when the page goes through a handler.
func (s *AddressSpace) fetchPage(page uint32) (mem []byte, base int64, ok bool) {
	p := &s.tables[tableFetch][page]
	if p.kind != kindMemory {
		return nil, 0, false
	}
	return s.regions[p.index], p.base, true
}

// Describe names what backs addr for each access kind.
func (s *AddressSpace) Describe(addr uint32) string {
	names := [tableCount]string{"read", "write", "fetch"}
	out := ""
	for t := 0; t < tableCount; t++ {
		p := &s.tables[t][addr>>pageShift]
		if t > 0 {
			out += " "
		}
		if p.kind == kindHandler {
			out += fmt.Sprintf("%s=handler%d", names[t], p.index)
		} else {
			out += fmt.Sprintf("%s=mem%d%+#x", names[t], p.index, p.base+int64(addr&pageMask))
		}
	}
	return out
}
