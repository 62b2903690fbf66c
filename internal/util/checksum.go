package util

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/tesserakv/tessera/internal/errors"
)

// castagnoliTable is the CRC32C polynomial table, computed once
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the CRC32C checksum of data
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}

// Frame appends a 4-byte little-endian CRC32C trailer to data
func Frame(data []byte) []byte {
	framed := make([]byte, len(data)+4)
	copy(framed, data)
	binary.LittleEndian.PutUint32(framed[len(data):], Checksum(data))
	return framed
}

// Unframe validates the trailing checksum and returns the payload
// without it
func Unframe(framed []byte) ([]byte, error) {
	if len(framed) < 4 {
		return nil, errors.InvalidArgument("framed data too short for checksum trailer", nil)
	}
	data := framed[:len(framed)-4]
	expected := binary.LittleEndian.Uint32(framed[len(framed)-4:])
	actual := Checksum(data)
	if actual != expected {
		return nil, errors.ChecksumFailed(expected, actual)
	}
	return data, nil
}
