package proto

import "testing"

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		content string
	}{
		{
			name:    "text frame",
			raw:     `{"type":"text","content":"hi"}`,
			want:    TypeText,
			content: "hi",
		},
		{
			name:    "file frame",
			raw:     `{"type":"file","content":"http://x/y.png","file_name":"y.png","size":10}`,
			want:    TypeFile,
			content: "http://x/y.png",
		},
		{
			name:    "invalid json degrades to text",
			raw:     `hello there`,
			want:    TypeText,
			content: "hello there",
		},
		{
			name:    "unknown type degrades to text",
			raw:     `{"type":"sticker","content":"x"}`,
			want:    TypeText,
			content: `{"type":"sticker","content":"x"}`,
		},
		{
			name:    "missing type degrades to text",
			raw:     `{"content":"x"}`,
			want:    TypeText,
			content: `{"content":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DecodeInbound([]byte(tt.raw))
			if in.Type != tt.want {
				t.Fatalf("expected type %q, got %q", tt.want, in.Type)
			}
			if in.Content != tt.content {
				t.Fatalf("expected content %q, got %q", tt.content, in.Content)
			}
		})
	}
}

func TestDecodeInboundKeepsFileMetadata(t *testing.T) {
	in := DecodeInbound([]byte(`{"type":"file","content":"http://x/y.png","file_name":"y.png","size":10}`))
	if in.FileName == nil || *in.FileName != "y.png" {
		t.Fatalf("expected file_name y.png, got %v", in.FileName)
	}
	if in.Size == nil || *in.Size != 10 {
		t.Fatalf("expected size 10, got %v", in.Size)
	}
}
