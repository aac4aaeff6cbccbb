package mqtt

import (
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	mustMarshal := func(m proto.Message) []byte {
		data, err := proto.Marshal(m)
		require.NoError(t, err)
		return data
	}
	testCases := []struct {
		topic   string
		payload []byte
		expect  string
	}{
		{"dev/wake", encodeString("开始配网"), `"开始配网"`},
		{"dev/control", encodeString("ok"), `"ok"`},
		{"dev/volume", mustMarshal(&wrappers.UInt32Value{Value: 50}), "50%"},
		{"dev/capture", encodeBytes(make([]byte, 40)), "40 bytes"},
		{"dev/stats", []byte(`{"volume":80}`), `{"volume":80}`},
	}
	for _, tc := range testCases {
		out, err := Describe(tc.topic, tc.payload)
		require.NoError(t, err)
		require.Equal(t, tc.expect, out)
	}
	_, err := Describe("dev/meta", nil)
	require.Error(t, err)
	_, err = Describe("dev/wake", []byte{0xff})
	require.Error(t, err)
}
