package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomIDEchoesRawValue(t *testing.T) {
	for _, raw := range []string{`"42"`, `42`, `"lobby"`, `1e2`} {
		r, err := ParseRoomID(json.RawMessage(raw))
		require.NoError(t, err, raw)

		out, err := json.Marshal(r)
		require.NoError(t, err)
		assert.Equal(t, raw, string(out))
	}
}

func TestRoomIDKeys(t *testing.T) {
	str, err := ParseRoomID(json.RawMessage(`"42"`))
	require.NoError(t, err)
	num, err := ParseRoomID(json.RawMessage(`42`))
	require.NoError(t, err)
	float, err := ParseRoomID(json.RawMessage(`42.0`))
	require.NoError(t, err)

	assert.NotEqual(t, str.Key(), num.Key(), "string and number rooms are distinct")
	assert.Equal(t, num.Key(), float.Key())
	assert.Equal(t, StringRoom("42").Key(), str.Key())
	assert.Equal(t, NumberRoom(42).Key(), num.Key())
}

func TestRoomIDRejectsOtherKinds(t *testing.T) {
	for _, raw := range []string{`null`, `true`, `{}`, `[1]`, ``, `"unterminated`} {
		_, err := ParseRoomID(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrBadRoomID, raw)
	}
}

func TestRoomIDTruthy(t *testing.T) {
	assert.False(t, RoomID{}.Truthy())
	assert.False(t, StringRoom("").Truthy())
	assert.False(t, NumberRoom(0).Truthy())
	assert.True(t, StringRoom("0").Truthy())
	assert.True(t, NumberRoom(7).Truthy())
}

func TestRoomIDInt64(t *testing.T) {
	n, err := StringRoom("42").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	n, err = NumberRoom(-3).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(-3), n)

	_, err = StringRoom("lobby").Int64()
	assert.Error(t, err)

	frac, err := ParseRoomID(json.RawMessage(`1.5`))
	require.NoError(t, err)
	_, err = frac.Int64()
	assert.Error(t, err)

	for _, raw := range []string{`1e19`, `-1e19`, `9223372036854775808`} {
		big, err := ParseRoomID(json.RawMessage(raw))
		require.NoError(t, err)
		_, err = big.Int64()
		assert.Error(t, err, raw)
	}

	exp, err := ParseRoomID(json.RawMessage(`4.2e1`))
	require.NoError(t, err)
	n, err = exp.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	// Past 2^53 a float64 would round.
	exact, err := ParseRoomID(json.RawMessage(`9007199254740993`))
	require.NoError(t, err)
	n, err = exact.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), n)

	edge, err := ParseRoomID(json.RawMessage(`-9223372036854775808`))
	require.NoError(t, err)
	n, err = edge.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), n)
}

func TestChatMessageJSON(t *testing.T) {
	msg := ChatMessage{Room: StringRoom("42"), SenderID: "u1", Content: "hi"}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"roomId":"42"`)
	assert.Contains(t, string(data), `"senderId":"u1"`)
	assert.Contains(t, string(data), `"message":"hi"`)
}
