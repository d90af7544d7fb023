package util

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var tokenizer = regexp.MustCompile(`(\d+|\D+)`)

type naturalToken struct {
	text  string
	num   int
	isNum bool
}

func tokenize(s string) []naturalToken {
	parts := tokenizer.FindAllString(s, -1)
	tokens := make([]naturalToken, len(parts))
	for i, p := range parts {
		if num, err := strconv.Atoi(p); err == nil {
			tokens[i] = naturalToken{num: num, isNum: true}
		} else {
			tokens[i] = naturalToken{text: strings.ToLower(p)}
		}
	}
	return tokens
}

// NaturalLess orders strings so that embedded numbers compare by value,
// e.g. "img2.png" before "img10.png". Letters compare case-insensitively.
func NaturalLess(a, b string) bool {
	ta, tb := tokenize(a), tokenize(b)
	for i := 0; i < min(len(ta), len(tb)); i++ {
		x, y := ta[i], tb[i]
		switch {
		case x.isNum && !y.isNum:
			return true
		case !x.isNum && y.isNum:
			return false
		case x.isNum && x.num != y.num:
			return x.num < y.num
		case !x.isNum && x.text != y.text:
			return x.text < y.text
		}
	}
	return len(ta) < len(tb)
}

// SortPaths sorts file paths in place by the natural order of their base names.
// Paths with equal base names keep their relative order.
func SortPaths(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return NaturalLess(filepath.Base(paths[i]), filepath.Base(paths[j]))
	})
}
