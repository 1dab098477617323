package rle

import "fmt"

// InvalidMaskError возвращается, если маска не прямоугольная или содержит
// значения, отличные от 0 и 1. Row и Col равны -1, если не относятся к делу.
type InvalidMaskError struct {
	Row    int
	Col    int
	Reason string
}

func (e *InvalidMaskError) Error() string {
	return "invalid mask: " + e.Reason
}

// InvalidRecordError возвращается при декодировании некорректной RLE-записи.
type InvalidRecordError struct {
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid rle record: %s", e.Reason)
}
