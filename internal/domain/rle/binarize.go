package rle

import (
	"encoding/json"
	"fmt"
)

// DefaultThreshold порог вероятности, с которого пиксель считается передним планом.
const DefaultThreshold float32 = 0.5

// Binarize превращает построчную карту вероятностей в маску: 1, если prob >= threshold.
func Binarize(height, width int, probs []float32, threshold float32) (*BinaryMask, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %v is out of (0,1]", threshold)
	}
	if height < 0 || width < 0 || len(probs) != height*width {
		return nil, &InvalidMaskError{
			Row:    -1,
			Col:    -1,
			Reason: fmt.Sprintf("%d probabilities for a %dx%d mask", len(probs), height, width),
		}
	}

	data := make([]uint8, len(probs))
	for i, p := range probs {
		if p >= threshold {
			data[i] = 1
		}
	}

	return &BinaryMask{height: height, width: width, data: data}, nil
}

// MarshalJSON сериализует маску как несжатый RLE.
func (m *BinaryMask) MarshalJSON() ([]byte, error) {
	rec, err := Encode(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// UnmarshalJSON читает маску из несжатого RLE.
func (m *BinaryMask) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	decoded, err := Decode(rec)
	if err != nil {
		return err
	}

	*m = *decoded
	return nil
}
