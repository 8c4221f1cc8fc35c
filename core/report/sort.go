package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/trezcool/vidyaverse/core/school"
)

// parseRoll returns the numeric value of a roll number, if it has one.
func parseRoll(roll string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(roll))
	return n, err == nil
}

// lessByRoll orders numeric roll numbers ascending, then non-numeric ones; ties and non-numeric pairs by name.
func lessByRoll(a, b school.Student) bool {
	na, aok := parseRoll(a.RollNo)
	nb, bok := parseRoll(b.RollNo)
	switch {
	case aok && bok && na != nb:
		return na < nb
	case aok && !bok:
		return true
	case !aok && bok:
		return false
	}
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}

// sortByRoll returns a sorted copy of students.
func sortByRoll(students []school.Student) []school.Student {
	sorted := append([]school.Student(nil), students...)
	sort.SliceStable(sorted, func(i, j int) bool { return lessByRoll(sorted[i], sorted[j]) })
	return sorted
}

// sortByClassAndRoll returns a copy of students sorted by class, section, then roll.
func sortByClassAndRoll(students []school.Student) []school.Student {
	sorted := append([]school.Student(nil), students...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Class != b.Class {
			return lessClass(a.Class, b.Class)
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		return lessByRoll(a, b)
	})
	return sorted
}

// lessClass orders numeric class names numerically ("2" < "10"), others lexically after them.
func lessClass(a, b string) bool {
	na, aok := parseRoll(a)
	nb, bok := parseRoll(b)
	switch {
	case aok && bok:
		return na < nb
	case aok != bok:
		return aok
	}
	return a < b
}
