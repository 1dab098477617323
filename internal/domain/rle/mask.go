// Package rle кодирует бинарные маски экземпляров в несжатый RLE.
//
// "Несжатый" здесь означает только то, что длины серий пишутся обычными
// целыми числами, без упаковки в строку, как в сжатом COCO RLE.
package rle

import "fmt"

// BinaryMask прямоугольная маска height × width, каждая ячейка 0 или 1.
// Данные хранятся построчно.
type BinaryMask struct {
	height int
	width  int
	data   []uint8
}

// New создаёт маску из плоского построчного буфера.
func New(height, width int, data []uint8) (*BinaryMask, error) {
	if height < 0 || width < 0 {
		return nil, &InvalidMaskError{Row: -1, Col: -1, Reason: fmt.Sprintf("negative size %dx%d", height, width)}
	}
	if len(data) != height*width {
		return nil, &InvalidMaskError{Row: -1, Col: -1, Reason: fmt.Sprintf("data has %d cells, want %d", len(data), height*width)}
	}

	cells := make([]uint8, len(data))
	for i, v := range data {
		if v > 1 {
			return nil, nonBinary(i/maxInt(width, 1), i%maxInt(width, 1), int(v))
		}
		cells[i] = v
	}

	return &BinaryMask{height: height, width: width, data: cells}, nil
}

// FromRows создаёт маску из вложенных строк 0/1.
func FromRows(rows [][]uint8) (*BinaryMask, error) {
	height, width, err := shape(len(rows), func(i int) int { return len(rows[i]) })
	if err != nil {
		return nil, err
	}

	data := make([]uint8, 0, height*width)
	for r, row := range rows {
		for c, v := range row {
			if v > 1 {
				return nil, nonBinary(r, c, int(v))
			}
			data = append(data, v)
		}
	}

	return &BinaryMask{height: height, width: width, data: data}, nil
}

// FromBools создаёт маску из вложенных строк bool.
func FromBools(rows [][]bool) (*BinaryMask, error) {
	height, width, err := shape(len(rows), func(i int) int { return len(rows[i]) })
	if err != nil {
		return nil, err
	}

	data := make([]uint8, 0, height*width)
	for _, row := range rows {
		for _, v := range row {
			if v {
				data = append(data, 1)
			} else {
				data = append(data, 0)
			}
		}
	}

	return &BinaryMask{height: height, width: width, data: data}, nil
}

// Height возвращает число строк.
func (m *BinaryMask) Height() int { return m.height }

// Width возвращает число столбцов.
func (m *BinaryMask) Width() int { return m.width }

// At возвращает значение ячейки.
func (m *BinaryMask) At(row, col int) uint8 {
	return m.data[row*m.width+col]
}

// Rows возвращает копию маски в виде вложенных строк.
func (m *BinaryMask) Rows() [][]uint8 {
	rows := make([][]uint8, m.height)
	for r := range rows {
		rows[r] = append([]uint8(nil), m.data[r*m.width:(r+1)*m.width]...)
	}
	return rows
}

// Area возвращает число пикселей переднего плана.
func (m *BinaryMask) Area() int {
	area := 0
	for _, v := range m.data {
		area += int(v)
	}
	return area
}

// Equal сравнивает размеры и содержимое масок.
func (m *BinaryMask) Equal(other *BinaryMask) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.height != other.height || m.width != other.width {
		return false
	}
	for i := range m.data {
		if m.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

func shape(height int, rowLen func(int) int) (int, int, error) {
	if height == 0 {
		return 0, 0, nil
	}

	width := rowLen(0)
	for r := 1; r < height; r++ {
		if n := rowLen(r); n != width {
			return 0, 0, &InvalidMaskError{
				Row:    r,
				Col:    -1,
				Reason: fmt.Sprintf("row %d has %d cells, want %d", r, n, width),
			}
		}
	}

	return height, width, nil
}

func nonBinary(row, col, value int) error {
	return &InvalidMaskError{
		Row:    row,
		Col:    col,
		Reason: fmt.Sprintf("value %d at (%d,%d) is not 0 or 1", value, row, col),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
