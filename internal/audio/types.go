package audio

// DecodedAudio is a decoded recording. It is never mutated after Decode
// returns, so it may be shared freely between goroutines.
type DecodedAudio struct {
	Samples    []float64 // mono, normalized to [-1, 1]
	SampleRate uint32
	Channels   uint16 // channel count before downmix
	BitDepth   uint16
	Duration   float64 // seconds
	Raw        []byte  // copy of the input, for the playback device
}

// Frames returns the number of decoded mono samples
func (d *DecodedAudio) Frames() int {
	if d == nil {
		return 0
	}
	return len(d.Samples)
}
