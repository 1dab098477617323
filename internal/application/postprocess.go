package app

import (
	"github.com/samber/lo"

	"cvbp/internal/domain/entity"
)

// Postprocessor фильтрует или изменяет список найденных объектов.
type Postprocessor func([]entity.Detection) []entity.Detection

// NewScoreFilter отбрасывает объекты с уверенностью ниже conf.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []entity.Detection) []entity.Detection {
		return lo.Filter(in, func(d entity.Detection, _ int) bool {
			return d.Score >= conf
		})
	}
}
