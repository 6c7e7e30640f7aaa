package main

import (
	"sort"

	"github.com/samber/lo"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
