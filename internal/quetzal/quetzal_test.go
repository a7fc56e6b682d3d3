package quetzal_test

import (
	"bytes"
	"testing"

	"github.com/haldane-ifs/zengine/internal/quetzal"
)

func TestEncodeDecodeRoundTripUncompressed(t *testing.T) {
	header := quetzal.Header{Release: 42, Serial: [6]uint8{'9', '9', '0', '1', '0', '1'}, Checksum: 0xbeef, PC: 0x1234}
	original := bytes.Repeat([]byte{0}, 64)
	current := append([]byte(nil), original...)
	current[10] = 5
	current[40] = 9

	frames := []quetzal.StackFrame{
		{ReturnPC: 0x100, HasStore: true, StoreVariable: 3, ArgumentMask: 0b11, Locals: []uint16{1, 2}, EvalStack: []uint16{7}},
		{ReturnPC: 0, HasStore: false},
	}

	data := quetzal.Encode(header, original, current, frames, false)
	file, err := quetzal.Decode(data, original)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if file.Header != header {
		t.Fatalf("header mismatch: got %+v want %+v", file.Header, header)
	}
	if !bytes.Equal(file.Memory, current) {
		t.Fatalf("memory mismatch: got %v want %v", file.Memory, current)
	}
	if len(file.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(file.Frames))
	}
	if file.Frames[0].StoreVariable != 3 || len(file.Frames[0].Locals) != 2 {
		t.Fatalf("frame 0 mismatch: %+v", file.Frames[0])
	}
	if file.Frames[1].HasStore {
		t.Fatal("frame 1 should be a discard-result call")
	}
}

func TestEncodeDecodeRoundTripCompressed(t *testing.T) {
	header := quetzal.Header{Release: 1, Serial: [6]uint8{'0', '0', '0', '1', '0', '1'}}
	original := make([]byte, 256)
	current := make([]byte, 256)
	copy(current, original)
	current[3] = 0xff
	current[200] = 0x01

	data := quetzal.Encode(header, original, current, nil, true)
	file, err := quetzal.Decode(data, original)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !file.Compressed {
		t.Fatal("expected compressed memory chunk")
	}
	if !bytes.Equal(file.Memory, current) {
		t.Fatalf("memory mismatch after RLE round trip")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := quetzal.Decode([]byte("not a save file"), nil); err == nil {
		t.Fatal("expected an error for non-FORM data")
	}
}
