package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Classroom/internal/domain"
)

func TestPeekAndDecode(t *testing.T) {
	req := require.New(t)

	data, err := Encode(Chat{Header: Header{Type: TypeChat, Req: 7}, Room: "room1", Channel: 2, Text: "hi"})
	req.NoError(err)

	h, err := Peek(data)
	req.NoError(err)
	req.Equal(TypeChat, h.Type)
	req.Equal(uint64(7), h.Req)

	var c Chat
	req.NoError(DecodeValid(data, &c))
	req.Equal(domain.RoomID("room1"), c.Room)
	req.Equal(2, c.Channel)
	req.Equal("hi", c.Text)
}

func TestPeek_MissingType(t *testing.T) {
	_, err := Peek([]byte(`{"req":1}`))
	require.Error(t, err)

	_, err = Peek([]byte(`not json`))
	require.Error(t, err)
}

func TestDecodeValid_RejectsBadLogin(t *testing.T) {
	req := require.New(t)

	var l Login
	req.Error(DecodeValid([]byte(`{"type":"login","name":"","role":0}`), &l))
	req.Error(DecodeValid([]byte(`{"type":"login","name":"bob","role":3}`), &l))
	req.NoError(DecodeValid([]byte(`{"type":"login","name":"bob","role":1}`), &l))
	req.Equal(domain.RoleParticipant, l.Role)
}

func TestNewError_EchoesRequest(t *testing.T) {
	e := NewError(Header{Type: TypeJoin, Req: 42}, CodeRoomFull, "room is full")
	require.Equal(t, TypeError, e.Type)
	require.Equal(t, uint64(42), e.Req)
	require.Equal(t, CodeRoomFull, e.Code)
}
