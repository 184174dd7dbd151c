package proof

import (
	"encoding/binary"
	"io"
)

// ReadLE and WriteLE read and write fixed size values little endian, as bincode does.
func ReadLE[T any](r io.Reader) (T, error) {
	var out T
	err := binary.Read(r, binary.LittleEndian, &out)
	return out, err
}

func WriteLE[T any](w io.Writer, data T) error {
	return binary.Write(w, binary.LittleEndian, data)
}
