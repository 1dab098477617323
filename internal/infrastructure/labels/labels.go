package labels

import (
	"fmt"
	"strings"
)

// Unknown подпись для индекса вне таблицы.
const Unknown = "unknown"

// Table таблица имён классов, индекс совпадает с выходом модели.
type Table []string

// Lookup возвращает имя класса или Unknown.
func (t Table) Lookup(i int) string {
	if i < 0 || i >= len(t) {
		return Unknown
	}
	return t[i]
}

// Len возвращает размер таблицы.
func (t Table) Len() int { return len(t) }

func parseLines(text string) Table {
	var table Table
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		table = append(table, line)
	}
	return table
}

func checkSize(name string, t Table, want int) error {
	if len(t) != want {
		return fmt.Errorf("%s labels: got %d entries, want %d", name, len(t), want)
	}
	return nil
}
