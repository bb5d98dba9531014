package audio

// MaxPeak is the largest value Peak can return (|-128|).
const MaxPeak = 128

// Peak returns the largest absolute sample value in a frame of signed 8-bit
// samples. Each frame is measured on its own; nothing carries over.
func Peak(frame []byte) int {
	peak := 0
	for _, b := range frame {
		sample := int(int8(b))
		if sample < 0 {
			sample = -sample
		}
		if sample > peak {
			peak = sample
			if peak == MaxPeak {
				break
			}
		}
	}
	return peak
}
