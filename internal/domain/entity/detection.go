package entity

import "cvbp/internal/domain/rle"

// BoundingBox рамка объекта в пикселях
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width возвращает ширину рамки
func (b BoundingBox) Width() int { return b.Right - b.Left }

// Height возвращает высоту рамки
func (b BoundingBox) Height() int { return b.Bottom - b.Top }

// Area возвращает площадь рамки
func (b BoundingBox) Area() int { return b.Width() * b.Height() }

// Center возвращает координаты центра рамки
func (b BoundingBox) Center() (x, y int) {
	return b.Left + b.Width()/2, b.Top + b.Height()/2
}

// Detection один найденный объект
type Detection struct {
	Label string          `json:"label"`          // имя класса
	Score float64         `json:"score"`          // уверенность в [0,1]
	Box   BoundingBox     `json:"box"`            // рамка
	Mask  *rle.BinaryMask `json:"mask,omitempty"` // маска экземпляра, только для сегментации
}
