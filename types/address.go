package types

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tonlite/tonlite/libs/bytes"
)

// ErrInvalidAddress is returned for any account address string that does
// not parse as the raw or the packed form.
var ErrInvalidAddress = errors.New("invalid address")

const (
	packedAddrTag           = 0x11
	packedAddrNonBounceable = 0x40
	packedAddrTestnet       = 0x80
)

// Address identifies one account in the network's global address space.
type Address struct {
	Workchain int32
	ID        bytes.HexBytes // 32 bytes

	// Presentation flags carried by the packed form; they do not take
	// part in equality or lookups.
	Bounceable bool
	Testnet    bool
}

// ParseAddress accepts the raw "workchain:hex" form and the 48-character
// packed base64 form (tag, workchain, account id, crc16 checksum), in both
// the standard and the URL-safe alphabet.
func ParseAddress(s string) (Address, error) {
	if strings.ContainsRune(s, ':') {
		return parseRawAddress(s)
	}
	return parsePackedAddress(s)
}

func parseRawAddress(s string) (Address, error) {
	wcRaw, idRaw, found := strings.Cut(s, ":")
	if !found {
		return Address{}, ErrInvalidAddress
	}

	wc, err := strconv.ParseInt(wcRaw, 10, 32)
	if err != nil {
		return Address{}, fmt.Errorf("%w: bad workchain %q", ErrInvalidAddress, wcRaw)
	}

	id, err := hex.DecodeString(idRaw)
	if err != nil || len(id) != 32 {
		return Address{}, fmt.Errorf("%w: account id must be 32 hex bytes", ErrInvalidAddress)
	}

	return Address{Workchain: int32(wc), ID: id, Bounceable: true}, nil
}

func parsePackedAddress(s string) (Address, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		if data, err = base64.StdEncoding.DecodeString(s); err != nil {
			return Address{}, fmt.Errorf("%w: not base64", ErrInvalidAddress)
		}
	}
	if len(data) != 36 {
		return Address{}, fmt.Errorf("%w: packed form must be 36 bytes, got %d", ErrInvalidAddress, len(data))
	}

	if crc16(data[:34]) != binary.BigEndian.Uint16(data[34:36]) {
		return Address{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	tag := data[0]
	if tag&^byte(packedAddrNonBounceable|packedAddrTestnet) != packedAddrTag {
		return Address{}, fmt.Errorf("%w: unknown tag %#x", ErrInvalidAddress, tag)
	}

	return Address{
		Workchain:  int32(int8(data[1])),
		ID:         append([]byte(nil), data[2:34]...),
		Bounceable: tag&packedAddrNonBounceable == 0,
		Testnet:    tag&packedAddrTestnet != 0,
	}, nil
}

// Pack returns the 48-character base64 packed form.
func (a Address) Pack() string {
	data := make([]byte, 36)
	data[0] = packedAddrTag
	if !a.Bounceable {
		data[0] |= packedAddrNonBounceable
	}
	if a.Testnet {
		data[0] |= packedAddrTestnet
	}
	data[1] = byte(int8(a.Workchain))
	copy(data[2:34], a.ID)
	binary.BigEndian.PutUint16(data[34:36], crc16(data[:34]))

	return base64.URLEncoding.EncodeToString(data)
}

// String renders the raw form.
func (a Address) String() string {
	return fmt.Sprintf("%d:%s", a.Workchain, strings.ToLower(hex.EncodeToString(a.ID)))
}

// crc16 is CRC-16/XMODEM, the checksum the packed address form carries.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
