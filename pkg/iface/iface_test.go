package iface

import (
	"testing"
)

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name    string
		b       []byte
		maxLen  int
		want    string
		wantErr bool
	}{
		{
			name:   "NUL terminated (netlink)",
			b:      []byte("lo\x00"),
			maxLen: NameSize - 1,
			want:   "lo",
		},
		{
			name:   "NUL terminated with padding",
			b:      []byte("eth0\x00\x00\x00\x00"),
			maxLen: NameSize - 1,
			want:   "eth0",
		},
		{
			name:   "length delimited (sockaddr_dl)",
			b:      []byte("lo0"),
			maxLen: NameSize - 1,
			want:   "lo0",
		},
		{
			name:   "maximum length",
			b:      []byte("abcdefghijklmno"),
			maxLen: NameSize - 1,
			want:   "abcdefghijklmno",
		},
		{
			name:    "too long",
			b:       []byte("abcdefghijklmnop"),
			maxLen:  NameSize - 1,
			wantErr: true,
		},
		{
			name:    "empty",
			b:       nil,
			maxLen:  NameSize - 1,
			wantErr: true,
		},
		{
			name:    "only NUL",
			b:       []byte{0, 0},
			maxLen:  NameSize - 1,
			wantErr: true,
		},
		{
			name:    "invalid UTF-8",
			b:       []byte{0xff, 0xfe, 'x'},
			maxLen:  NameSize - 1,
			wantErr: true,
		},
		{
			name:   "windows style long name",
			b:      []byte("loopback_0\x00"),
			maxLen: 255,
			want:   "loopback_0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeName(tt.b, tt.maxLen)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeName() = %q, want %q", got, tt.want)
			}
		})
	}
}
