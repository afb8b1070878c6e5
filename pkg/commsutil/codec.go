package commsutil

import (
	"encoding/json"
	"fmt"

	comms "github.com/nats-io/nats.go"
)

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// RespondPayload encodes v and sends it as the reply to msg.
func RespondPayload(msg *comms.Msg, v interface{}) error {
	data, err := EncodePayload(v)
	if err != nil {
		return fmt.Errorf("commsutil:codec - encode reply: %w", err)
	}
	return msg.Respond(data)
}
