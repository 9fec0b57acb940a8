package domain

import (
	"strings"

	"github.com/google/uuid"
)

// CanonicalID приводит идентификатор к единому строковому виду:
// uuid в каноническом написании, иначе обрезанная строка в нижнем регистре.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return strings.ToLower(id)
}

// SameID сравнивает идентификаторы после канонизации.
func SameID(a, b string) bool {
	return a != "" && CanonicalID(a) == CanonicalID(b)
}

// ContainsID проверяет членство id в множестве лайков.
func ContainsID(likes []string, id string) bool {
	for _, l := range likes {
		if SameID(l, id) {
			return true
		}
	}
	return false
}

// ToggleMember переключает членство id в множестве: если он есть - удаляются
// все вхождения, иначе id добавляется в конец. Порядок остальных сохраняется.
// Исходный слайс не изменяется.
func ToggleMember(likes []string, id string) []string {
	id = CanonicalID(id)
	if !ContainsID(likes, id) {
		out := make([]string, 0, len(likes)+1)
		out = append(out, likes...)
		return append(out, id)
	}
	out := make([]string, 0, len(likes))
	for _, l := range likes {
		if !SameID(l, id) {
			out = append(out, l)
		}
	}
	return out
}
