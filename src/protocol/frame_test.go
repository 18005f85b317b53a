package protocol

import (
	"testing"

	"github.com/excalisketch/socket/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJoinAndLeave(t *testing.T) {
	f, err := Parse([]byte(`{"type":"join_room","roomId":"42"}`))
	require.NoError(t, err)
	join, ok := f.(JoinRoom)
	require.True(t, ok)
	assert.Equal(t, types.StringRoom("42").Key(), join.Room.Key())

	f, err = Parse([]byte(`{"type":"leave_room","roomId":7}`))
	require.NoError(t, err)
	leave, ok := f.(LeaveRoom)
	require.True(t, ok)
	assert.Equal(t, types.NumberRoom(7).Key(), leave.Room.Key())
}

func TestParseChat(t *testing.T) {
	f, err := Parse([]byte(`{"type":"chat","roomId":"42","message":"hi"}`))
	require.NoError(t, err)
	chat, ok := f.(Chat)
	require.True(t, ok)
	assert.Equal(t, "hi", chat.Message)
	assert.Equal(t, "42", chat.Room.String())
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		`not json`,
		`[1,2,3]`,
		`"join_room"`,
		`{"type":"join_room"}`,
		`{"type":"join_room","roomId":null}`,
		`{"type":"leave_room","roomId":{"id":1}}`,
	}
	for _, raw := range cases {
		f, err := Parse([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedFrame, raw)
		assert.Nil(t, f, raw)
	}
}

func TestParseInvalidChat(t *testing.T) {
	cases := []string{
		`{"type":"chat","message":"hi"}`,
		`{"type":"chat","roomId":"","message":"hi"}`,
		`{"type":"chat","roomId":0,"message":"hi"}`,
		`{"type":"chat","roomId":"42"}`,
		`{"type":"chat","roomId":"42","message":""}`,
		`{"type":"chat","roomId":"42","message":12}`,
	}
	for _, raw := range cases {
		f, err := Parse([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidChatPayload, raw)
		assert.Nil(t, f, raw)
	}
}

func TestParseUnknown(t *testing.T) {
	for _, raw := range []string{`{}`, `{"type":"draw","shape":"rect"}`, `{"roomId":"42"}`} {
		f, err := Parse([]byte(raw))
		require.NoError(t, err, raw)
		_, ok := f.(Unknown)
		assert.True(t, ok, raw)
	}
}

func TestOutboundFrames(t *testing.T) {
	data, err := Joined(types.StringRoom("42"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"joined_room","roomId":"42"}`, string(data))

	data, err = Left(types.NumberRoom(42))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"left_room","roomId":42}`, string(data))

	data, err = ChatFrame(types.ChatMessage{Room: types.StringRoom("42"), SenderID: "u1", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"chat","roomId":"42","message":"hi","senderId":"u1"}`, string(data))
}
