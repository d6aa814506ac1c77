package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	playerrors "github.com/jscyril/wavtagger/pkg/errors"
)

const (
	riffChunkToken = "RIFF"
	waveFormatType = "WAVE"
	fmtChunkToken  = "fmt "
	dataChunkToken = "data"

	riffHeaderSize  = 12 // 'RIFF' + size + 'WAVE'
	chunkHeaderSize = 8  // id + size
	fmtChunkMinSize = 16

	formatPCM        = 0x0001
	formatExtensible = 0xFFFE
	extensibleSize   = 40 // fmt chunk size carrying a sub-format GUID
)

// SupportedFormats returns list of supported file extensions
func SupportedFormats() []string {
	return []string{".wav"}
}

// IsSupported checks if a file name carries a supported extension
func IsSupported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// wavFormat is the subset of the fmt chunk the decoder needs
type wavFormat struct {
	code          uint16
	channels      uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// Decode parses a RIFF/WAVE byte buffer into a normalized mono sample
// sequence. The input is never modified; the returned Raw field is a copy.
func Decode(data []byte) (*DecodedAudio, error) {
	hdr, err := scanChunks(data)
	if err != nil {
		return nil, err
	}

	// A truncated file still yields the frames that are present.
	dataLen := hdr.dataLen
	if avail := len(data) - hdr.dataOffset; dataLen > avail {
		dataLen = avail
	}
	samples := extractSamples(data[hdr.dataOffset:hdr.dataOffset+dataLen], hdr.format)

	raw := make([]byte, len(data))
	copy(raw, data)

	return &DecodedAudio{
		Samples:    samples,
		SampleRate: hdr.format.sampleRate,
		Channels:   hdr.format.channels,
		BitDepth:   hdr.format.bitsPerSample,
		Duration:   float64(len(samples)) / float64(hdr.format.sampleRate),
		Raw:        raw,
	}, nil
}

// Info describes a recording from its header alone
type Info struct {
	SampleRate uint32
	Channels   uint16
	BitDepth   uint16
	Duration   float64 // from the declared data length
}

// Inspect reads the format of a recording without decoding samples. header
// may be only the leading bytes of the file, as long as it reaches the
// data chunk header.
func Inspect(header []byte) (Info, error) {
	hdr, err := scanChunks(header)
	if err != nil {
		return Info{}, err
	}
	f := hdr.format
	frameSize := int(f.channels) * int(f.bitsPerSample/8)
	return Info{
		SampleRate: f.sampleRate,
		Channels:   f.channels,
		BitDepth:   f.bitsPerSample,
		Duration:   float64(hdr.dataLen/frameSize) / float64(f.sampleRate),
	}, nil
}

// headerReadLimit bounds how much of a file InspectFile reads
const headerReadLimit = 64 << 10

// InspectFile reads the header of the file at path and inspects it
func InspectFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	buf := make([]byte, headerReadLimit)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Info{}, err
	}
	return Inspect(buf[:n])
}

// chunkLayout locates the fmt and data chunks of a RIFF/WAVE stream
type chunkLayout struct {
	format     *wavFormat
	dataOffset int
	dataLen    int // as declared; may exceed the bytes present
}

// scanChunks walks the chunk list up to the first data chunk
func scanChunks(data []byte) (chunkLayout, error) {
	var layout chunkLayout
	if len(data) < riffHeaderSize {
		return layout, decodeErr(playerrors.ErrInvalidContainer, 0, "file shorter than RIFF header")
	}
	if string(data[0:4]) != riffChunkToken {
		return layout, decodeErr(playerrors.ErrInvalidContainer, 0, fmt.Sprintf("container tag %q", data[0:4]))
	}
	if string(data[8:12]) != waveFormatType {
		return layout, decodeErr(playerrors.ErrInvalidContainer, 8, fmt.Sprintf("format tag %q", data[8:12]))
	}

	layout.dataOffset = -1
	offset := riffHeaderSize
	for offset+chunkHeaderSize <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		payload := offset + chunkHeaderSize

		switch id {
		case fmtChunkToken:
			f, err := parseFmtChunk(data, payload, size)
			if err != nil {
				return layout, err
			}
			layout.format = f
		case dataChunkToken:
			layout.dataOffset = payload
			layout.dataLen = size
		}
		if layout.dataOffset >= 0 {
			break
		}
		offset = payload + size
	}

	if layout.dataOffset < 0 {
		return layout, decodeErr(playerrors.ErrMissingDataChunk, offset, "no data chunk before end of stream")
	}
	if layout.format == nil {
		return layout, decodeErr(playerrors.ErrInvalidContainer, layout.dataOffset-chunkHeaderSize, "data chunk precedes fmt chunk")
	}
	return layout, nil
}

// parseFmtChunk validates a format-description chunk at payload
func parseFmtChunk(data []byte, payload, size int) (*wavFormat, error) {
	if size < fmtChunkMinSize || payload+fmtChunkMinSize > len(data) {
		return nil, decodeErr(playerrors.ErrInvalidContainer, payload, fmt.Sprintf("fmt chunk of %d bytes", size))
	}
	p := data[payload:]
	f := &wavFormat{
		code:          binary.LittleEndian.Uint16(p[0:2]),
		channels:      binary.LittleEndian.Uint16(p[2:4]),
		sampleRate:    binary.LittleEndian.Uint32(p[4:8]),
		bitsPerSample: binary.LittleEndian.Uint16(p[14:16]),
	}

	// WAVE_FORMAT_EXTENSIBLE stores the real format code in the first two
	// bytes of the sub-format GUID.
	if f.code == formatExtensible && size >= extensibleSize && payload+extensibleSize <= len(data) {
		f.code = binary.LittleEndian.Uint16(p[24:26])
	}

	if f.code != formatPCM {
		return nil, decodeErr(playerrors.ErrUnsupportedFormat, payload, fmt.Sprintf("format code 0x%04x is not linear PCM", f.code))
	}
	switch f.bitsPerSample {
	case 8, 16, 24, 32:
	default:
		return nil, decodeErr(playerrors.ErrUnsupportedFormat, payload+14, fmt.Sprintf("%d bits per sample", f.bitsPerSample))
	}
	if f.channels == 0 {
		return nil, decodeErr(playerrors.ErrUnsupportedFormat, payload+2, "zero channels")
	}
	if f.sampleRate == 0 {
		return nil, decodeErr(playerrors.ErrUnsupportedFormat, payload+4, "zero sample rate")
	}
	return f, nil
}

// extractSamples converts interleaved PCM frames to mono floats
func extractSamples(pcm []byte, f *wavFormat) []float64 {
	width := int(f.bitsPerSample) / 8
	channels := int(f.channels)
	frameSize := width * channels
	frames := len(pcm) / frameSize

	convert := sampleConverter(f.bitsPerSample)
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		frame := pcm[i*frameSize : (i+1)*frameSize]
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += convert(frame[ch*width : (ch+1)*width])
		}
		samples[i] = sum / float64(channels)
	}
	return samples
}

// sampleConverter returns the per-width little-endian normalizer
func sampleConverter(bits uint16) func([]byte) float64 {
	switch bits {
	case 8:
		return func(b []byte) float64 {
			return (float64(b[0]) - 128) / 128
		}
	case 16:
		return func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
		}
	case 24:
		return func(b []byte) float64 {
			return float64(sampleFrom24Bit(b)) / 8388608
		}
	default:
		return func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
		}
	}
}

// sampleFrom24Bit sign-extends a packed little-endian 24-bit value
func sampleFrom24Bit(b []byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

func decodeErr(kind error, offset int, reason string) error {
	return &playerrors.DecodeError{Offset: offset, Reason: reason, Err: kind}
}
