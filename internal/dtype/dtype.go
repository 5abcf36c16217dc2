package dtype

import (
	"encoding/binary"

	"github.com/robert-malhotra/h5view/internal/message"
)

// ByteOrder returns the byte order elements of dt are stored in.
func ByteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
