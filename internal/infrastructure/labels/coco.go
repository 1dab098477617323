package labels

import (
	_ "embed"
	"slices"
)

// COCOSize размер таблицы COCO вместе с фоном и пропусками N/A.
const COCOSize = 91

//go:embed coco.txt
var cocoText string

var coco = parseLines(cocoText)

// COCO возвращает копию таблицы COCO; индекс 0 — фон.
func COCO() Table {
	return slices.Clone(coco)
}

// COCOLabel имя класса для нулевого индекса детектора без фона.
func COCOLabel(classID int) string {
	return coco.Lookup(classID + 1)
}
