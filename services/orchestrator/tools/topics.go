// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"strings"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/retrieval"
)

// docAnalysis summarizes a retrieval result set for the planner: score
// statistics, the strongest document and which Ayurvedic topics the
// content clusters around.
type docAnalysis struct {
	AverageSimilarity float64           `json:"average_similarity"`
	ScoreDistribution scoreDistribution `json:"score_distribution"`
	DocumentCount     int               `json:"document_count"`
	MostRelevant      *relevantDocument `json:"most_relevant,omitempty"`
	TopicAnalysis     topicAnalysis     `json:"topic_analysis"`
}

type scoreDistribution struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

type relevantDocument struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type topicAnalysis struct {
	Topics          map[string]topicScore `json:"topics"`
	PrimaryTopic    string                `json:"primary_topic,omitempty"`
	Recommendations map[string]string     `json:"recommendations,omitempty"`
}

type topicScore struct {
	Score float64 `json:"score"`
}

// ayurvedicTopic scores one topic family against retrieved content.
// Related terms count at half weight.
type ayurvedicTopic struct {
	name       string
	keywords   []string
	related    []string
	treatments map[string]string
}

var ayurvedicTopics = []ayurvedicTopic{
	{
		name:     "dosha",
		keywords: []string{"dosha", "vata", "pitta", "kapha", "tridosha"},
		related:  []string{"prakriti", "guna", "rasa"},
		treatments: map[string]string{
			"diet":      "Balanced according to dosha type",
			"lifestyle": "Dosha-specific daily routine",
			"herbs":     "Dosha-balancing herbs",
		},
	},
	{
		name:     "prakriti",
		keywords: []string{"prakriti", "constitution", "body type"},
		related:  []string{"dosha", "vata", "pitta", "kapha"},
		treatments: map[string]string{
			"assessment": "Pulse and physical examination",
			"lifestyle":  "Constitution-based recommendations",
		},
	},
}

// analyzeDocuments builds the analysis block of a search observation.
// Returns nil for an empty result set.
func analyzeDocuments(docs []retrieval.Document) *docAnalysis {
	if len(docs) == 0 {
		return nil
	}

	minScore := docs[0].Score
	maxScore := docs[0].Score
	sum := 0.0
	best := 0
	for i, doc := range docs {
		sum += doc.Score
		if doc.Score < minScore {
			minScore = doc.Score
		}
		if doc.Score > maxScore {
			maxScore = doc.Score
			best = i
		}
	}
	avg := sum / float64(len(docs))

	return &docAnalysis{
		AverageSimilarity: avg,
		ScoreDistribution: scoreDistribution{Min: minScore, Max: maxScore, Average: avg},
		DocumentCount:     len(docs),
		MostRelevant: &relevantDocument{
			Content:  docs[best].Content,
			Score:    docs[best].Score,
			Metadata: docs[best].Metadata,
		},
		TopicAnalysis: analyzeTopics(docs),
	}
}

// analyzeTopics counts topic keyword occurrences across the combined
// document text and normalizes by the highest-scoring topic. A primary
// topic is only reported when it actually matched something.
func analyzeTopics(docs []retrieval.Document) topicAnalysis {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(doc.Content)
	}
	text := strings.ToLower(b.String())

	analysis := topicAnalysis{Topics: make(map[string]topicScore, len(ayurvedicTopics))}

	raw := make(map[string]float64, len(ayurvedicTopics))
	maxScore := 0.0
	for _, topic := range ayurvedicTopics {
		score := 0.0
		for _, kw := range topicKeywords(topic) {
			score += float64(strings.Count(text, kw))
		}
		for _, related := range topic.related {
			score += float64(strings.Count(text, strings.ToLower(related))) * 0.5
		}
		raw[topic.name] = score
		if score > maxScore {
			maxScore = score
		}
	}
	if maxScore == 0 {
		maxScore = 1
	}

	best := ""
	bestScore := 0.0
	for _, topic := range ayurvedicTopics {
		normalized := raw[topic.name] / maxScore
		analysis.Topics[topic.name] = topicScore{Score: normalized}
		if raw[topic.name] > 0 && normalized > bestScore {
			best = topic.name
			bestScore = normalized
		}
	}
	if best == "" {
		return analysis
	}

	analysis.PrimaryTopic = best
	for _, topic := range ayurvedicTopics {
		if topic.name == best {
			analysis.Recommendations = topic.treatments
		}
	}
	return analysis
}

// topicKeywords returns the topic's keyword set including its own name,
// lowercased and deduplicated so overlapping entries count once.
func topicKeywords(topic ayurvedicTopic) []string {
	all := make([]string, 0, len(topic.keywords)+1)
	all = append(all, topic.keywords...)
	all = append(all, topic.name)

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, kw := range all {
		kw = strings.ToLower(kw)
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
