package mqtt

import (
	"fmt"
	"path"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"
)

// Describe renders a bridge message for display, picking the payload
// encoding from the last topic level.
func Describe(topic string, payload []byte) (string, error) {
	switch path.Base(topic) {
	case TopicWake, TopicControl:
		var v wrappers.StringValue
		if err := proto.Unmarshal(payload, &v); err != nil {
			return "", err
		}
		return fmt.Sprintf("%q", v.Value), nil
	case TopicVolume:
		var v wrappers.UInt32Value
		if err := proto.Unmarshal(payload, &v); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d%%", v.Value), nil
	case TopicCapture, TopicPlayback:
		var v wrappers.BytesValue
		if err := proto.Unmarshal(payload, &v); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d bytes", len(v.Value)), nil
	case TopicStats:
		return string(payload), nil
	}
	return "", fmt.Errorf("unknown topic %q", topic)
}
