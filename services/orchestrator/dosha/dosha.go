// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dosha implements the Ayurvedic constitution assessment.
//
// This package contains two independent analyses. The Calculator scores a
// twelve-question questionnaire into a primary and secondary dosha with
// per-category analysis and balancing recommendations. The SymptomAnalyzer
// maps reported symptoms onto probable dosha imbalances. Both are pure
// computations with no I/O; the chat tools and HTTP handlers wrap them.
package dosha

// Dosha identifies one of the three Ayurvedic constitution types.
type Dosha string

const (
	Vata  Dosha = "Vata"
	Pitta Dosha = "Pitta"
	Kapha Dosha = "Kapha"

	// Unknown is reported when no question scored.
	Unknown Dosha = "Unknown"
)

// doshaOrder fixes iteration order so score ties resolve the same way on
// every run: Vata before Pitta before Kapha.
var doshaOrder = [3]Dosha{Vata, Pitta, Kapha}

// Weights is one answer's contribution to each dosha score.
type Weights struct {
	Vata  int
	Pitta int
	Kapha int
}

// get returns the weight for the given dosha.
func (w Weights) get(d Dosha) int {
	switch d {
	case Vata:
		return w.Vata
	case Pitta:
		return w.Pitta
	case Kapha:
		return w.Kapha
	default:
		return 0
	}
}

// scoreSet accumulates integer scores per dosha.
type scoreSet map[Dosha]int

func newScoreSet() scoreSet {
	return scoreSet{Vata: 0, Pitta: 0, Kapha: 0}
}

func (s scoreSet) add(w Weights) {
	s[Vata] += w.Vata
	s[Pitta] += w.Pitta
	s[Kapha] += w.Kapha
}

func (s scoreSet) total() int {
	sum := 0
	for _, v := range s {
		sum += v
	}
	return sum
}

// ranked returns the doshas ordered by descending score. Equal scores keep
// the fixed Vata, Pitta, Kapha order.
func (s scoreSet) ranked() [3]Dosha {
	ranked := doshaOrder
	// Three elements; a stable insertion pass is enough.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && s[ranked[j]] > s[ranked[j-1]]; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	return ranked
}
