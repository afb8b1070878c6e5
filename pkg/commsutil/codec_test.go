package commsutil

import (
	"testing"
)

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    string
		wantErr bool
	}{
		{
			name:  "invoke params",
			input: map[string]interface{}{"key": "tabs.activate.shift", "args": map[string]string{"shift": "1"}},
			want:  `{"args":{"shift":"1"},"key":"tabs.activate.shift"}`,
		},
		{
			name:  "empty args object",
			input: map[string]interface{}{"key": "windows.create", "args": map[string]string{}},
			want:  `{"args":{},"key":"windows.create"}`,
		},
		{
			name:  "nil",
			input: nil,
			want:  "null",
		},
		{
			name:    "func is not serializable",
			input:   func() {},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Fatal("commsutil:codec_test - expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
			}

			got := string(data)
			if got != tt.want {
				t.Errorf("commsutil:codec_test - EncodePayload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	type invokeParams struct {
		Key  string            `json:"key"`
		Args map[string]string `json:"args"`
	}

	tests := []struct {
		name    string
		data    string
		check   func(t *testing.T, got *invokeParams)
		wantErr bool
	}{
		{
			name: "key and args",
			data: `{"key":"tabs.activate.shift","args":{"shift":"<length> - 1"}}`,
			check: func(t *testing.T, got *invokeParams) {
				if got.Key != "tabs.activate.shift" {
					t.Errorf("commsutil:codec_test - Key = %q", got.Key)
				}
				if got.Args["shift"] != "<length> - 1" {
					t.Errorf("commsutil:codec_test - Args[shift] = %q", got.Args["shift"])
				}
			},
		},
		{
			name: "missing args stays nil",
			data: `{"key":"windows.create"}`,
			check: func(t *testing.T, got *invokeParams) {
				if got.Args != nil {
					t.Errorf("commsutil:codec_test - expected nil args, got %v", got.Args)
				}
			},
		},
		{
			name:    "numeric arg value is rejected",
			data:    `{"key":"tabs.activate.shift","args":{"shift":1}}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			data:    `{invalid}`,
			wantErr: true,
		},
		{
			name:    "empty data",
			data:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got invokeParams
			err := DecodePayload([]byte(tt.data), &got)

			if tt.wantErr {
				if err == nil {
					t.Fatal("commsutil:codec_test - expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
			}

			if tt.check != nil {
				tt.check(t, &got)
			}
		})
	}
}
