package labels

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"cvbp/internal/domain/port"
)

// ImageNetSize число классов ImageNet.
const ImageNetSize = 1000

// LoadImageNet читает таблицу ImageNet по пути или URL.
func LoadImageNet(ctx context.Context, source port.ImageSource, path string) (Table, error) {
	data, err := source.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read imagenet labels: %w", err)
	}

	table, err := ParseImageNet(data)
	if err != nil {
		return nil, err
	}
	if err := checkSize("imagenet", table, ImageNetSize); err != nil {
		return nil, err
	}
	return table, nil
}

// ParseImageNet понимает два формата:
// JSON-индекс {"0": ["n01440764", "tench"], ...} и строки synset
// вида "n01440764 tench, Tinca tinca".
func ParseImageNet(data []byte) (Table, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return parseClassIndex(trimmed)
	}
	return parseSynsets(trimmed)
}

func parseClassIndex(data []byte) (Table, error) {
	var index map[string][]string
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("decode class index: %w", err)
	}

	keys := make([]int, 0, len(index))
	for k := range index {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("class index key %q: %w", k, err)
		}
		keys = append(keys, i)
	}
	sort.Ints(keys)

	table := make(Table, len(keys))
	for pos, i := range keys {
		if i != pos {
			return nil, fmt.Errorf("class index has a gap at %d", pos)
		}
		entry := index[strconv.Itoa(i)]
		if len(entry) == 0 {
			return nil, fmt.Errorf("class index entry %d is empty", i)
		}
		table[i] = entry[len(entry)-1]
	}
	return table, nil
}

func parseSynsets(data []byte) (Table, error) {
	var table Table
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if id, rest, ok := strings.Cut(line, " "); ok && isSynsetID(id) {
			line = rest
		}
		name, _, _ := strings.Cut(line, ",")
		table = append(table, strings.TrimSpace(name))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan synsets: %w", err)
	}
	return table, nil
}

func isSynsetID(s string) bool {
	if len(s) != 9 || s[0] != 'n' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
