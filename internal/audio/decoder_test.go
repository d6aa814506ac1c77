package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	playerrors "github.com/jscyril/wavtagger/pkg/errors"
)

// quantize encodes v at the given bit depth, little-endian
func quantize(v float64, bits int) []byte {
	switch bits {
	case 8:
		q := math.Round(v*128) + 128
		return []byte{byte(math.Max(0, math.Min(255, q)))}
	case 16:
		q := math.Max(-32768, math.Min(32767, math.Round(v*32768)))
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(int16(q)))
		return b
	case 24:
		q := int32(math.Max(-8388608, math.Min(8388607, math.Round(v*8388608))))
		return []byte{byte(q), byte(q >> 8), byte(q >> 16)}
	default:
		q := math.Max(-2147483648, math.Min(2147483647, math.Round(v*2147483648)))
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(int32(q)))
		return b
	}
}

// buildWAV assembles a canonical PCM file from interleaved frames
func buildWAV(channels, sampleRate, bits int, frames [][]float64) []byte {
	var pcm bytes.Buffer
	for _, frame := range frames {
		for _, v := range frame {
			pcm.Write(quantize(v, bits))
		}
	}
	return assembleWAV(fmtPayload(formatPCM, channels, sampleRate, bits), pcm.Bytes())
}

func fmtPayload(code, channels, sampleRate, bits int) []byte {
	p := make([]byte, 16)
	blockAlign := channels * bits / 8
	binary.LittleEndian.PutUint16(p[0:], uint16(code))
	binary.LittleEndian.PutUint16(p[2:], uint16(channels))
	binary.LittleEndian.PutUint32(p[4:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(p[8:], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(p[12:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(p[14:], uint16(bits))
	return p
}

func chunk(id string, payload []byte) []byte {
	b := make([]byte, 8, 8+len(payload))
	copy(b, id)
	binary.LittleEndian.PutUint32(b[4:], uint32(len(payload)))
	return append(b, payload...)
}

func assembleWAV(fmtChunkPayload, pcm []byte, extra ...[]byte) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")
	for _, c := range extra {
		body.Write(c)
	}
	body.Write(chunk("fmt ", fmtChunkPayload))
	body.Write(chunk("data", pcm))

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func monoFrames(values ...float64) [][]float64 {
	frames := make([][]float64, len(values))
	for i, v := range values {
		frames[i] = []float64{v}
	}
	return frames
}

func TestDecodeRoundTripPerBitDepth(t *testing.T) {
	values := []float64{0, 0.5, -0.5, 0.25, -0.999, 0.333333, -0.123456}

	for _, bits := range []int{8, 16, 24, 32} {
		t.Run(string(rune('0'+bits/8))+"-byte", func(t *testing.T) {
			data := buildWAV(1, 8000, bits, monoFrames(values...))
			decoded, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.BitDepth != uint16(bits) {
				t.Errorf("expected bit depth %d, got %d", bits, decoded.BitDepth)
			}
			if len(decoded.Samples) != len(values) {
				t.Fatalf("expected %d samples, got %d", len(values), len(decoded.Samples))
			}
			step := 1 / math.Pow(2, float64(bits-1))
			for i, want := range values {
				if diff := math.Abs(decoded.Samples[i] - want); diff > step {
					t.Errorf("sample %d: got %f, want %f (step %g)", i, decoded.Samples[i], want, step)
				}
			}
		})
	}
}

func TestDecodeFrameCountAndDuration(t *testing.T) {
	tests := []struct {
		name       string
		channels   int
		sampleRate int
		bits       int
		frames     int
	}{
		{"mono 16-bit", 1, 44100, 16, 4410},
		{"stereo 24-bit", 2, 48000, 24, 1200},
		{"quad 8-bit", 4, 8000, 8, 333},
		{"mono 32-bit", 1, 22050, 32, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := make([][]float64, tt.frames)
			for i := range frames {
				frames[i] = make([]float64, tt.channels)
			}
			decoded, err := Decode(buildWAV(tt.channels, tt.sampleRate, tt.bits, frames))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.Frames() != tt.frames {
				t.Errorf("expected %d frames, got %d", tt.frames, decoded.Frames())
			}
			want := float64(tt.frames) / float64(tt.sampleRate)
			if decoded.Duration != want {
				t.Errorf("expected duration %v, got %v", want, decoded.Duration)
			}
			if decoded.Channels != uint16(tt.channels) {
				t.Errorf("expected %d channels, got %d", tt.channels, decoded.Channels)
			}
			if decoded.SampleRate != uint32(tt.sampleRate) {
				t.Errorf("expected sample rate %d, got %d", tt.sampleRate, decoded.SampleRate)
			}
		})
	}
}

func TestDecodeTwoSecondFile(t *testing.T) {
	const rate = 44100
	frames := make([][]float64, 2*rate)
	for i := range frames {
		frames[i] = []float64{math.Sin(2 * math.Pi * 440 * float64(i) / rate)}
	}

	decoded, err := Decode(buildWAV(1, rate, 16, frames))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if math.Abs(decoded.Duration-2.0) > 1.0/rate {
		t.Errorf("expected duration 2.0, got %v", decoded.Duration)
	}
}

func TestDecodeStereoDownmix(t *testing.T) {
	frames := [][]float64{{0.5, -0.5}, {0.5, 0.5}, {-1, 0}}
	decoded, err := Decode(buildWAV(2, 44100, 16, frames))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := []float64{0, 0.5, -0.5}
	for i, w := range want {
		if math.Abs(decoded.Samples[i]-w) > 1.0/32768 {
			t.Errorf("frame %d: got %f, want %f", i, decoded.Samples[i], w)
		}
	}
	if decoded.Samples[0] != 0 {
		t.Errorf("(0.5, -0.5) should downmix to exactly 0, got %v", decoded.Samples[0])
	}
}

func TestDecode24BitSignExtension(t *testing.T) {
	pcm := []byte{0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x80, 0xFF, 0xFF, 0x7F}
	decoded, err := Decode(assembleWAV(fmtPayload(formatPCM, 1, 8000, 24), pcm))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := []float64{-1.0 / 8388608, -1, 8388607.0 / 8388608}
	for i, w := range want {
		if decoded.Samples[i] != w {
			t.Errorf("sample %d: got %v, want %v", i, decoded.Samples[i], w)
		}
	}
}

func TestDecode8BitIsUnsignedCentered(t *testing.T) {
	decoded, err := Decode(assembleWAV(fmtPayload(formatPCM, 1, 8000, 8), []byte{0, 128, 255}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []float64{-1, 0, 127.0 / 128}
	for i, w := range want {
		if decoded.Samples[i] != w {
			t.Errorf("sample %d: got %v, want %v", i, decoded.Samples[i], w)
		}
	}
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	list := chunk("LIST", []byte("INFOISFT\x05\x00\x00\x00test\x00\x00"))
	data := assembleWAV(fmtPayload(formatPCM, 1, 8000, 16), quantize(0.5, 16), list)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded.Samples) != 1 || decoded.Samples[0] != 0.5 {
		t.Errorf("unexpected samples %v", decoded.Samples)
	}
}

func TestDecodeExtensibleFormat(t *testing.T) {
	p := make([]byte, 40)
	copy(p, fmtPayload(formatExtensible, 1, 8000, 16))
	binary.LittleEndian.PutUint16(p[16:], 22)
	binary.LittleEndian.PutUint16(p[24:], formatPCM)

	decoded, err := Decode(assembleWAV(p, quantize(-0.25, 16)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Samples[0] != -0.25 {
		t.Errorf("got %v, want -0.25", decoded.Samples[0])
	}
}

func TestDecodeTruncatedDataChunk(t *testing.T) {
	data := buildWAV(1, 8000, 16, monoFrames(0.1, 0.2, 0.3, 0.4))
	truncated := data[:len(data)-3] // one full frame and half of another gone

	decoded, err := Decode(truncated)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Frames() != 2 {
		t.Errorf("expected 2 complete frames, got %d", decoded.Frames())
	}
}

func TestDecodeDoesNotMutateInput(t *testing.T) {
	data := buildWAV(2, 8000, 24, [][]float64{{0.1, -0.1}, {0.9, 0.3}})
	before := append([]byte(nil), data...)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(data, before) {
		t.Error("Decode modified its input")
	}
	if !bytes.Equal(decoded.Raw, data) {
		t.Error("Raw should hold the original bytes")
	}
	decoded.Raw[0] = 'X'
	if data[0] != 'R' {
		t.Error("Raw should be a copy, not an alias of the input")
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := buildWAV(1, 8000, 16, monoFrames(0))

	badContainer := append([]byte(nil), valid...)
	copy(badContainer, "RIFX")

	badFormatTag := append([]byte(nil), valid...)
	copy(badFormatTag[8:], "AVI ")

	float := assembleWAV(fmtPayload(3, 1, 8000, 32), make([]byte, 4))
	twelveBit := assembleWAV(fmtPayload(formatPCM, 1, 8000, 12), make([]byte, 4))
	zeroRate := assembleWAV(fmtPayload(formatPCM, 1, 0, 16), make([]byte, 4))

	var noData bytes.Buffer
	noData.WriteString("RIFF\x00\x00\x00\x00WAVE")
	noData.Write(chunk("fmt ", fmtPayload(formatPCM, 1, 8000, 16)))

	var dataFirst bytes.Buffer
	dataFirst.WriteString("RIFF\x00\x00\x00\x00WAVE")
	dataFirst.Write(chunk("data", make([]byte, 4)))
	dataFirst.Write(chunk("fmt ", fmtPayload(formatPCM, 1, 8000, 16)))

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, playerrors.ErrInvalidContainer},
		{"short", []byte("RIFF"), playerrors.ErrInvalidContainer},
		{"wrong container tag", badContainer, playerrors.ErrInvalidContainer},
		{"wrong format tag", badFormatTag, playerrors.ErrInvalidContainer},
		{"short fmt chunk", append([]byte("RIFF\x00\x00\x00\x00WAVE"), chunk("fmt ", make([]byte, 8))...), playerrors.ErrInvalidContainer},
		{"data before fmt", dataFirst.Bytes(), playerrors.ErrInvalidContainer},
		{"ieee float", float, playerrors.ErrUnsupportedFormat},
		{"12-bit", twelveBit, playerrors.ErrUnsupportedFormat},
		{"zero sample rate", zeroRate, playerrors.ErrUnsupportedFormat},
		{"no data chunk", noData.Bytes(), playerrors.ErrMissingDataChunk},
		{"header only", []byte("RIFF\x04\x00\x00\x00WAVE"), playerrors.ErrMissingDataChunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(tt.data)
			if err == nil {
				t.Fatalf("expected error, got %+v", decoded)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var de *playerrors.DecodeError
			if !errors.As(err, &de) {
				t.Errorf("expected a DecodeError, got %T", err)
			}
		})
	}
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/music/take.wav", true},
		{"/music/take.WAV", true},
		{"/music/take.mp3", false},
		{"/music/take.flac", false},
		{"/music/take", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsSupported(tt.path); got != tt.expected {
				t.Errorf("IsSupported(%s) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestInspectReadsHeaderOnly(t *testing.T) {
	frames := make([][]float64, 8000)
	for i := range frames {
		frames[i] = []float64{0.1, -0.1}
	}
	data := buildWAV(2, 8000, 24, frames)

	// Only the header and the first few frames are present.
	info, err := Inspect(data[:64])
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.SampleRate != 8000 || info.Channels != 2 || info.BitDepth != 24 {
		t.Errorf("unexpected format %+v", info)
	}
	if math.Abs(info.Duration-1) > 1e-9 {
		t.Errorf("expected declared duration 1s, got %v", info.Duration)
	}
}

func TestInspectRejectsWhatDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, playerrors.ErrInvalidContainer},
		{"not riff", []byte("RIFX\x00\x00\x00\x00WAVEfmt "), playerrors.ErrInvalidContainer},
		{"float", assembleWAV(fmtPayload(3, 1, 8000, 32), make([]byte, 8)), playerrors.ErrUnsupportedFormat},
		{"no data", buildWAV(1, 8000, 16, nil)[:36], playerrors.ErrMissingDataChunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Inspect error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInspectFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "take.wav")
	if err := os.WriteFile(good, buildWAV(1, 16000, 16, monoFrames(0.1, 0.2)), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := InspectFile(good)
	if err != nil {
		t.Fatalf("InspectFile failed: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitDepth != 16 {
		t.Errorf("unexpected format %+v", info)
	}

	if _, err := InspectFile(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
