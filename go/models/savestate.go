package models

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"hash/crc32"
	"io"
	"io/ioutil"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// save file format, all big endian:
//
// file header
// [4]byte("SH2F")
// uint32(save format version)
// uint32(crc32 of compressed data)
// uint32(length of compressed data)
// remainder is gzip-compressed
//
// -- uncompressed data start --
// uint32(number of blobs)
// 1..num: uint32(blob length), <raw blob bytes>
//
// Each blob is one processor's SaveState output, in pool order.

const (
	SaveMagic   = "SH2F"
	SaveVersion = 1
)

type saveHeader struct {
	Magic   string `struc:"[4]byte"`
	Version uint32
	Crc     uint32
	Size    uint32
}

func Save(blobs ...[]byte) ([]byte, error) {
	var buf bytes.Buffer
	s := StrucStream{&buf, binary.BigEndian}
	if err := s.Pack(uint32(len(blobs))); err != nil {
		return nil, err
	}
	for _, b := range blobs {
		s.Pack(uint32(len(b)))
		buf.Write(b)
	}

	// compress body
	var tmp bytes.Buffer
	gz := gzip.NewWriter(&tmp)
	if _, err := buf.WriteTo(gz); err != nil {
		return nil, errors.Wrap(err, "compressing save data")
	}
	if err := gz.Close(); err != nil {
		return nil, errors.Wrap(err, "compressing save data")
	}
	data := tmp.Bytes()

	var final bytes.Buffer
	header := &saveHeader{SaveMagic, SaveVersion, crc32.ChecksumIEEE(data), uint32(len(data))}
	if err := struc.PackWithOrder(&final, header, binary.BigEndian); err != nil {
		return nil, err
	}
	final.Write(data)
	return final.Bytes(), nil
}

func Load(data []byte) ([][]byte, error) {
	r := bytes.NewReader(data)
	var header saveHeader
	if err := struc.UnpackWithOrder(r, &header, binary.BigEndian); err != nil {
		return nil, errors.Wrap(err, "reading save header")
	}
	if header.Magic != SaveMagic {
		return nil, errors.New("not a save file")
	}
	if header.Version != SaveVersion {
		return nil, errors.Errorf("unsupported save version %d", header.Version)
	}
	body := data[len(data)-r.Len():]
	if uint32(len(body)) != header.Size {
		return nil, errors.Errorf("save body is %d bytes, header says %d", len(body), header.Size)
	}
	if crc32.ChecksumIEEE(body) != header.Crc {
		return nil, errors.New("save file checksum mismatch")
	}
	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "decompressing save data")
	}
	raw, err := ioutil.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing save data")
	}

	s := StrucStream{bytes.NewBuffer(raw), binary.BigEndian}
	var count uint32
	if err := s.Unpack(&count); err != nil {
		return nil, errors.Wrap(err, "reading blob count")
	}
	blobs := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		var size uint32
		if err := s.Unpack(&size); err != nil {
			return nil, errors.Wrapf(err, "reading blob %d", i)
		}
		b := make([]byte, size)
		if _, err := io.ReadFull(s.Stream, b); err != nil {
			return nil, errors.Wrapf(err, "reading blob %d", i)
		}
		blobs = append(blobs, b)
	}
	return blobs, nil
}
