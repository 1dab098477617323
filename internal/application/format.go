package app

import (
	"fmt"
	"strings"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/rle"
)

// FormatClassification строка "score,label,model,path".
func FormatClassification(c entity.Classification, path string) string {
	return fmt.Sprintf("%.2f,%s,%s,%s", c.Score, c.Label, c.Model, path)
}

// FormatTag строка "score,label,path".
func FormatTag(c entity.Classification, path string) string {
	return fmt.Sprintf("%.2f,%s,%s", c.Score, c.Label, path)
}

// FormatDetection строка "score,label,left,top,right,bottom,path".
func FormatDetection(d entity.Detection, path string) string {
	return fmt.Sprintf("%.2f,%s,%d,%d,%d,%d,%s",
		d.Score, d.Label, d.Box.Left, d.Box.Top, d.Box.Right, d.Box.Bottom, path)
}

// FormatMask строка "score,label,left,top,right,bottom,height,width,counts...,path".
func FormatMask(d entity.Detection, rec rle.Record, path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.2f,%s,%d,%d,%d,%d,",
		d.Score, d.Label, d.Box.Left, d.Box.Top, d.Box.Right, d.Box.Bottom)
	b.WriteString(rec.String())
	b.WriteByte(',')
	b.WriteString(path)
	return b.String()
}
