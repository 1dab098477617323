package rle

import (
	"fmt"
	"strconv"
	"strings"
)

// Record — несжатое RLE-представление маски.
// Counts — длины чередующихся серий 0/1 при обходе по столбцам,
// первая серия всегда фоновая (может быть нулевой).
type Record struct {
	Size   [2]int `json:"size"`
	Counts []int  `json:"counts"`
}

// Height возвращает высоту исходной маски.
func (r Record) Height() int { return r.Size[0] }

// Width возвращает ширину исходной маски.
func (r Record) Width() int { return r.Size[1] }

// Area возвращает число пикселей переднего плана.
func (r Record) Area() int {
	area := 0
	for i := 1; i < len(r.Counts); i += 2 {
		area += r.Counts[i]
	}
	return area
}

// String форматирует запись как "h,w,c0,c1,...".
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(r.Height()))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(r.Width()))
	for _, c := range r.Counts {
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

// Encode строит несжатый RLE маски. Функция чистая и может вызываться
// конкурентно на разных масках.
func Encode(m *BinaryMask) (Record, error) {
	if m == nil {
		return Record{}, &InvalidMaskError{Row: -1, Col: -1, Reason: "nil mask"}
	}

	rec := Record{Size: [2]int{m.height, m.width}, Counts: []int{}}
	if m.height == 0 || m.width == 0 {
		return rec, nil
	}

	var prev uint8
	run := 0
	for c := 0; c < m.width; c++ {
		for r := 0; r < m.height; r++ {
			v := m.data[r*m.width+c]
			if v != prev {
				rec.Counts = append(rec.Counts, run)
				prev = v
				run = 0
			}
			run++
		}
	}
	rec.Counts = append(rec.Counts, run)

	return rec, nil
}

// EncodeRows проверяет вложенные строки и кодирует их.
func EncodeRows(rows [][]uint8) (Record, error) {
	m, err := FromRows(rows)
	if err != nil {
		return Record{}, err
	}
	return Encode(m)
}

// Decode восстанавливает маску из записи.
func Decode(rec Record) (*BinaryMask, error) {
	height, width := rec.Height(), rec.Width()
	if height < 0 || width < 0 {
		return nil, &InvalidRecordError{Reason: fmt.Sprintf("negative size %dx%d", height, width)}
	}

	total := 0
	for i, c := range rec.Counts {
		if c < 0 {
			return nil, &InvalidRecordError{Reason: fmt.Sprintf("negative count %d at %d", c, i)}
		}
		total += c
	}
	if total != height*width {
		return nil, &InvalidRecordError{Reason: fmt.Sprintf("counts sum to %d, want %d", total, height*width)}
	}

	data := make([]uint8, height*width)
	pos := 0
	for i, c := range rec.Counts {
		v := uint8(i % 2)
		for k := 0; k < c; k++ {
			// pos идёт по столбцам, data хранится по строкам
			data[(pos%height)*width+pos/height] = v
			pos++
		}
	}

	return &BinaryMask{height: height, width: width, data: data}, nil
}
