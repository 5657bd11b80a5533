package hostproto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	in, ok := Normalize([]byte(`{"method":"init","apiVersion":1}`))
	require.True(t, ok)
	assert.Equal(t, MethodInit, in.Method)
	assert.Equal(t, 1, in.APIVersion)

	in, ok = Normalize([]byte(`"{\"method\":\"open\",\"activity\":{\"aid\":\"A1\"}}"`))
	require.True(t, ok, "string-encoded message")
	assert.Equal(t, MethodOpen, in.Method)
	a, ok := in.ExtractActivity()
	require.True(t, ok)
	assert.Equal(t, "A1", a["aid"])
}

func TestNormalize_Drops(t *testing.T) {
	for name, frame := range map[string]string{
		"garbage":        `not json`,
		"bad string":     `"{not json"`,
		"no method":      `{"activity":{}}`,
		"empty method":   `{"method":""}`,
		"numeric method": `{"method":7}`,
		"array":          `[1,2]`,
		"bare string":    `"hello"`,
		"empty":          ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := Normalize([]byte(frame))
			assert.False(t, ok)
		})
	}
}

func TestExtractActivity(t *testing.T) {
	in, _ := Normalize([]byte(`{"method":"open","activity":{"aid":"A1"},"activityList":[{"aid":"A2"}]}`))
	a, ok := in.ExtractActivity()
	require.True(t, ok)
	assert.Equal(t, "A1", a["aid"], "singular activity wins")

	in, _ = Normalize([]byte(`{"method":"open","activityList":[{"aid":"A2"},{"aid":"A3"}]}`))
	a, ok = in.ExtractActivity()
	require.True(t, ok)
	assert.Equal(t, "A2", a["aid"])

	in, _ = Normalize([]byte(`{"method":"open","activity":null,"activityList":[]}`))
	_, ok = in.ExtractActivity()
	assert.False(t, ok)
}

func TestNormalize_User(t *testing.T) {
	in, ok := Normalize([]byte(`{"method":"open","user":{"ulogin":"E81049","uname":"Stagner, Don"}}`))
	require.True(t, ok)
	require.NotNil(t, in.User)
	assert.Equal(t, "E81049", in.User.Login)
}

func TestOutboundShapes(t *testing.T) {
	b, err := json.Marshal(NewReady(APIVersion))
	require.NoError(t, err)
	assert.JSONEq(t, `{"apiVersion":1,"method":"ready","showHeader":true,"enableBackButton":true,"sendMessageAsJsObject":true}`, string(b))

	b, _ = json.Marshal(InitEndMessage{APIVersion: 1, Method: MethodInitEnd})
	assert.JSONEq(t, `{"apiVersion":1,"method":"initEnd"}`, string(b))

	b, _ = json.Marshal(CloseMessage{APIVersion: 1, Method: MethodClose, IsSuccess: true})
	assert.JSONEq(t, `{"apiVersion":1,"method":"close","isSuccess":true}`, string(b))
}
