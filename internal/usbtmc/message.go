package usbtmc

import (
	"encoding/binary"
	"fmt"
)

// USBTMC bulk message IDs
const (
	msgDevDepMsgOut        = 1
	msgRequestDevDepMsgIn  = 2
	msgDevDepMsgIn         = 2
	headerSize             = 12
	attrEndOfMessage uint8 = 0x01
)

// bulkHeader is the 12 byte header in front of every USBTMC bulk transfer
type bulkHeader struct {
	MsgID        uint8
	Tag          uint8
	TransferSize uint32
	Attributes   uint8
}

func (h bulkHeader) endOfMessage() bool {
	return h.Attributes&attrEndOfMessage != 0
}

func (h bulkHeader) encode(buf []byte) {
	buf[0] = h.MsgID
	buf[1] = h.Tag
	buf[2] = ^h.Tag
	buf[3] = 0
	binary.LittleEndian.PutUint32(buf[4:8], h.TransferSize)
	buf[8] = h.Attributes
	buf[9] = 0 // TermChar, unused
	buf[10] = 0
	buf[11] = 0
}

// encodeDevDepMsgOut frames payload as a DEV_DEP_MSG_OUT transfer, padded to
// a multiple of four bytes.
func encodeDevDepMsgOut(tag uint8, payload []byte, eom bool) []byte {
	size := headerSize + len(payload)
	msg := make([]byte, align4(size))

	h := bulkHeader{MsgID: msgDevDepMsgOut, Tag: tag, TransferSize: uint32(len(payload))}
	if eom {
		h.Attributes = attrEndOfMessage
	}
	h.encode(msg)
	copy(msg[headerSize:], payload)

	return msg
}

// encodeRequestDevDepMsgIn asks the device to send up to size bytes
func encodeRequestDevDepMsgIn(tag uint8, size int) []byte {
	msg := make([]byte, headerSize)
	bulkHeader{MsgID: msgRequestDevDepMsgIn, Tag: tag, TransferSize: uint32(size)}.encode(msg)
	return msg
}

// decodeDevDepMsgIn parses the header of a DEV_DEP_MSG_IN transfer and
// checks it answers the request carrying tag.
func decodeDevDepMsgIn(buf []byte, tag uint8) (bulkHeader, error) {
	if len(buf) < headerSize {
		return bulkHeader{}, fmt.Errorf("usbtmc: response too short: %d bytes", len(buf))
	}

	h := bulkHeader{
		MsgID:        buf[0],
		Tag:          buf[1],
		TransferSize: binary.LittleEndian.Uint32(buf[4:8]),
		Attributes:   buf[8],
	}

	switch {
	case h.MsgID != msgDevDepMsgIn:
		return h, &HeaderError{Field: "MsgID", Expected: msgDevDepMsgIn, Got: int(h.MsgID)}
	case h.Tag != tag:
		return h, &HeaderError{Field: "bTag", Expected: int(tag), Got: int(h.Tag)}
	case buf[2] != ^tag:
		return h, &HeaderError{Field: "bTagInverse", Expected: int(^tag), Got: int(buf[2])}
	}

	return h, nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func roundUp(n, multiple int) int {
	if multiple <= 0 {
		return n
	}
	return (n + multiple - 1) / multiple * multiple
}
