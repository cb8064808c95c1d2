package trace

import (
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
)

var TRACE_MAGIC = "SH2T"

const TRACE_VERSION = 1

type TraceHeader struct {
	// MAGIC ("SH2T")
	Magic string `struc:"[4]byte" json:"-"`
	// file format version
	Version uint32 `json:"version"`
	// emulated CPU, right-null-padded
	Arch string `struc:"[16]byte" json:"arch"`
	// number of registers in a keyframe
	RegCount uint16 `json:"reg_count"`
}

// TraceWriter writes the header raw, then a snappy stream of ops.
type TraceWriter struct {
	w  io.WriteCloser
	zw *snappy.Writer
}

func NewWriter(w io.WriteCloser, regCount int) (*TraceWriter, error) {
	header := &TraceHeader{
		Magic:    TRACE_MAGIC,
		Version:  TRACE_VERSION,
		Arch:     "sh2",
		RegCount: uint16(regCount),
	}
	if err := struc.PackWithOrder(w, header, order); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	return &TraceWriter{w: w, zw: snappy.NewBufferedWriter(w)}, nil
}

// write a frame at a time
func (t *TraceWriter) Pack(frame models.Op) error {
	buf := make([]byte, frame.Sizeof())
	frame.Pack(buf)
	_, err := t.zw.Write(buf)
	return err
}

func (t *TraceWriter) Close() error {
	if err := t.zw.Close(); err != nil {
		t.w.Close()
		return err
	}
	return t.w.Close()
}

type TraceReader struct {
	r      io.ReadCloser
	zr     *snappy.Reader
	Header TraceHeader
}

func NewReader(r io.ReadCloser) (*TraceReader, error) {
	t := &TraceReader{r: r}
	if err := struc.UnpackWithOrder(r, &t.Header, order); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if t.Header.Magic != TRACE_MAGIC {
		return nil, errors.New("invalid trace file magic")
	}
	if t.Header.Version != TRACE_VERSION {
		return nil, errors.Errorf("unsupported trace version %d", t.Header.Version)
	}
	t.Header.Arch = strings.TrimRight(t.Header.Arch, "\x00")
	t.zr = snappy.NewReader(r)
	return t, nil
}

// Next returns io.EOF after the last frame.
func (t *TraceReader) Next() (models.Op, error) {
	op, _, err := Unpack(t.zr, false)
	return op, err
}

func (t *TraceReader) Close() error {
	t.zr.Reset(nil)
	return t.r.Close()
}
