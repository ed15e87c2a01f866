package token

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	tokenFormatVersionV1 = 1
)

// The state byte sits at a fixed offset (second byte) so the conditional
// rotation Lua script can inspect it without decoding the full record.

func Encode(t *Token) ([]byte, error) {
	if t.State != StateRotated && t.ReplacedBy != "" {
		return nil, errors.New("replacedBy set on non-rotated record")
	}

	var buf bytes.Buffer

	buf.WriteByte(tokenFormatVersionV1)
	buf.WriteByte(byte(t.State))

	if len(t.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(t.UserID)))
	buf.WriteString(t.UserID)

	if len(t.FamilyID) > 255 {
		return nil, errors.New("familyID too long")
	}
	buf.WriteByte(byte(len(t.FamilyID)))
	buf.WriteString(string(t.FamilyID))

	if len(t.ReplacedBy) > 255 {
		return nil, errors.New("replacedBy too long")
	}
	buf.WriteByte(byte(len(t.ReplacedBy)))
	buf.WriteString(string(t.ReplacedBy))

	if err := binary.Write(&buf, binary.BigEndian, t.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, t.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Token, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenFormatVersionV1 {
		return nil, errors.New("invalid token record version")
	}

	state, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if state > byte(StateRevoked) {
		return nil, errors.New("invalid token record state")
	}

	t := &Token{State: State(state)}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	t.UserID = string(userID)

	familyLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	familyID := make([]byte, familyLen)
	if _, err := io.ReadFull(reader, familyID); err != nil {
		return nil, err
	}
	t.FamilyID = FamilyID(familyID)

	replacedLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	replacedBy := make([]byte, replacedLen)
	if _, err := io.ReadFull(reader, replacedBy); err != nil {
		return nil, err
	}
	t.ReplacedBy = ID(replacedBy)

	if err := binary.Read(reader, binary.BigEndian, &t.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &t.ExpiresAt); err != nil {
		return nil, err
	}

	if t.State != StateRotated && t.ReplacedBy != "" {
		return nil, errors.New("replacedBy set on non-rotated record")
	}

	return t, nil
}
