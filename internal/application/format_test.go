package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/rle"
)

func TestFormatClassificationAndTag(t *testing.T) {
	c := entity.Classification{Label: "tabby", Score: 0.8765, Model: "resnet18"}
	require.Equal(t, "0.88,tabby,resnet18,cat.jpg", FormatClassification(c, "cat.jpg"))
	require.Equal(t, "0.88,tabby,cat.jpg", FormatTag(c, "cat.jpg"))
}

func TestFormatDetection(t *testing.T) {
	d := entity.Detection{
		Label: "dog",
		Score: 0.5,
		Box:   entity.BoundingBox{Left: 1, Top: 2, Right: 30, Bottom: 40},
	}
	require.Equal(t, "0.50,dog,1,2,30,40,img.png", FormatDetection(d, "img.png"))
}

func TestFormatMask(t *testing.T) {
	d := entity.Detection{
		Label: "person",
		Score: 0.999,
		Box:   entity.BoundingBox{Left: 0, Top: 0, Right: 2, Bottom: 2},
	}
	rec, err := rle.EncodeRows([][]uint8{{0, 1}, {1, 1}})
	require.NoError(t, err)

	require.Equal(t, "1.00,person,0,0,2,2,2,2,1,3,https://x/y.jpg", FormatMask(d, rec, "https://x/y.jpg"))
}
