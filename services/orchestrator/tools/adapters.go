// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/dosha"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/herbs"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/ranking"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/retrieval"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/weather"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/websearch"
)

// Deps carries the services the default tool set wraps. Nil fields skip
// the tools that need them, so a lightweight deployment gets a smaller
// registry instead of tools that fail every call.
type Deps struct {
	Store      retrieval.Store
	Calculator *dosha.Calculator
	Analyzer   *dosha.SymptomAnalyzer
	Search     *websearch.Client
	Weather    *weather.Client
	Ranker     *ranking.Ranker
	Tracker    *tracker.Tracker
	Herbs      *herbs.Recommender
}

// RegisterDefaultTools registers every tool whose dependencies are
// available.
func RegisterDefaultTools(registry *Registry, deps Deps) {
	if deps.Store != nil {
		registry.Register(NewSearchTool(deps.Store))
	}
	if deps.Analyzer != nil {
		registry.Register(NewSymptomTool(deps.Analyzer, deps.Search))
	}
	if deps.Search != nil {
		registry.Register(NewGoogleSearchTool(deps.Search))
	}
	if deps.Weather != nil {
		registry.Register(NewWeatherTool(deps.Weather))
	}
	if deps.Calculator != nil {
		registry.Register(NewDoshaTool(deps.Calculator))
	}
	if deps.Ranker != nil {
		registry.Register(NewRecommendationTool(deps.Ranker))
	}
	if deps.Tracker != nil {
		registry.Register(NewArticleTool(deps.Tracker))
	}
	if deps.Herbs != nil {
		registry.Register(NewHerbTool(deps.Herbs))
	}

	slog.Info("Registered agent tools", "tools", strings.Join(registry.Names(), ", "))
}

// ============================================================================
// vector_store_search
// ============================================================================

// defaultSearchK is the document count when the planner does not ask for
// a specific k.
const defaultSearchK = 3

// searchTool wraps the knowledge-base similarity search.
type searchTool struct {
	store retrieval.Store
}

// NewSearchTool creates the vector_store_search tool over store.
func NewSearchTool(store retrieval.Store) Tool {
	return &searchTool{store: store}
}

func (t *searchTool) Name() string { return NameVectorStoreSearch }

func (t *searchTool) Description() string {
	return "Search the Ayurvedic knowledge base for relevant passages. " +
		"Use this for questions about herbs, remedies, doshas, symptoms or treatments; " +
		"returns the best-matching documents with metadata, relevance scores and a topic analysis."
}

func (t *searchTool) Parameters() map[string]any {
	return schemaObject(map[string]any{
		"query": schemaString("Search query related to Ayurveda, herbs, symptoms or treatments."),
		"k":     schemaInteger("How many documents to return. Defaults to 3."),
	}, "query")
}

// searchContext is the JSON observation for one knowledge-base search.
type searchContext struct {
	Documents       []searchDocument          `json:"documents"`
	Metadata        map[string]searchMetadata `json:"metadata"`
	RelevanceScores []float64                 `json:"relevance_scores"`
	Query           string                    `json:"query"`
	DocumentCount   int                       `json:"document_count"`
	Analysis        *docAnalysis              `json:"analysis,omitempty"`
}

type searchDocument struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchMetadata struct {
	Source       string `json:"source"`
	CreatedAt    string `json:"created_at"`
	DocumentType string `json:"document_type"`
	PageNumber   int    `json:"page_number"`
}

func (t *searchTool) Invoke(ctx context.Context, input Input) (string, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return "", &ToolError{Tool: NameVectorStoreSearch, Message: "query must be a non-empty string"}
	}
	k := input.K
	if k <= 0 {
		k = defaultSearchK
	}

	docs, err := t.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return "", &ToolError{Tool: NameVectorStoreSearch, Message: err.Error(), Retryable: true}
	}
	if len(docs) == 0 {
		slog.Info("No documents found", "query", query)
	}

	sc := searchContext{
		Documents:       make([]searchDocument, 0, len(docs)),
		Metadata:        make(map[string]searchMetadata, len(docs)),
		RelevanceScores: make([]float64, 0, len(docs)),
		Query:           query,
		DocumentCount:   len(docs),
	}
	for i, doc := range docs {
		docID := doc.ID()
		if docID == "" {
			docID = fmt.Sprintf("doc_%d", i+1)
		}
		sc.Documents = append(sc.Documents, searchDocument{
			ID:      docID,
			Content: doc.Content,
			Score:   doc.Score,
		})
		sc.Metadata[docID] = searchMetadata{
			Source:       metaStringOr(doc.Metadata, "source", "unknown"),
			CreatedAt:    metaStringOr(doc.Metadata, "created_at", "unknown"),
			DocumentType: metaStringOr(doc.Metadata, "type", "general"),
			PageNumber:   metaInt(doc.Metadata, "page"),
		}
		sc.RelevanceScores = append(sc.RelevanceScores, doc.Score)
	}
	sc.Analysis = analyzeDocuments(docs)

	return marshalObservation(sc)
}

// ============================================================================
// symptom_analyzer
// ============================================================================

// symptomTool wraps the dosha symptom analyzer, optionally enriched with
// live search context about the detected imbalance.
type symptomTool struct {
	analyzer *dosha.SymptomAnalyzer
	search   *websearch.Client
}

// NewSymptomTool creates the symptom_analyzer tool. search may be nil,
// which drops the externally sourced dosha primer from the output.
func NewSymptomTool(analyzer *dosha.SymptomAnalyzer, search *websearch.Client) Tool {
	return &symptomTool{analyzer: analyzer, search: search}
}

func (t *symptomTool) Name() string { return NameSymptomAnalyzer }

func (t *symptomTool) Description() string {
	return "Analyze reported symptoms for probable dosha imbalances. " +
		"Returns the likely imbalance with its matching symptoms and balancing recommendations."
}

func (t *symptomTool) Parameters() map[string]any {
	return schemaObject(map[string]any{
		"symptoms": schemaStringArray("Symptoms the user is experiencing."),
	}, "symptoms")
}

func (t *symptomTool) Invoke(ctx context.Context, input Input) (string, error) {
	if len(input.Symptoms) == 0 {
		return "", &ToolError{Tool: NameSymptomAnalyzer, Message: "no symptoms provided for analysis"}
	}

	analysis := t.analyzer.Analyze(input.Symptoms)

	lines := []string{"## Symptom Analysis Results\n"}
	if analysis.PrimaryDosha != "" {
		lines = append(lines, fmt.Sprintf("### Primary Dosha Imbalance: %s (Confidence: %.1f%%)",
			analysis.PrimaryDosha, analysis.Confidence*100))
		lines = t.appendDoshaBackground(ctx, lines, analysis.PrimaryDosha)
		lines = appendMatchedSymptoms(lines, analysis.MatchedSymptoms[string(analysis.PrimaryDosha)])
		if len(analysis.Recommendations) > 0 {
			lines = append(lines, "\n**Recommendations:**")
			for i, rec := range analysis.Recommendations {
				lines = append(lines, fmt.Sprintf("%d. %s", i+1, rec))
			}
		}
		if analysis.SecondaryDosha != "" && analysis.SecondaryDosha != analysis.PrimaryDosha {
			lines = append(lines, fmt.Sprintf("\n### Secondary Dosha Imbalance: %s", analysis.SecondaryDosha))
			lines = appendMatchedSymptoms(lines, analysis.MatchedSymptoms[string(analysis.SecondaryDosha)])
		}
	} else {
		lines = append(lines, "No clear dosha imbalance detected from the provided symptoms.")
	}
	lines = append(lines, "\n*Note: This is a preliminary analysis. For a complete assessment, "+
		"please consult with an Ayurvedic practitioner.*")

	return strings.Join(lines, "\n"), nil
}

// appendDoshaBackground adds a short externally sourced primer on the
// detected dosha. Lookup failures only log; the analysis stands alone.
func (t *symptomTool) appendDoshaBackground(ctx context.Context, lines []string, primary dosha.Dosha) []string {
	if t.search == nil {
		return lines
	}

	query := fmt.Sprintf("Ayurveda %s dosha characteristics and balancing", strings.ToLower(string(primary)))
	results, err := t.search.Search(ctx, query)
	if err != nil {
		slog.Warn("Dosha background lookup failed", "error", err)
		return lines
	}
	if len(results) == 0 {
		return lines
	}

	lines = append(lines, "\n**About This Dosha:**")
	for i, res := range results {
		if i == 2 {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, res.Title, res.Link))
	}
	return append(lines, "\n*Note: Please consult an Ayurvedic practitioner for personalized advice.*")
}

func appendMatchedSymptoms(lines []string, symptoms []string) []string {
	if len(symptoms) == 0 {
		return lines
	}
	lines = append(lines, "\n**Matching Symptoms:**")
	for _, s := range symptoms {
		lines = append(lines, "- "+s)
	}
	return lines
}

// ============================================================================
// google_search
// ============================================================================

// googleTool wraps the web search client.
type googleTool struct {
	client *websearch.Client
}

// NewGoogleSearchTool creates the google_search tool over client.
func NewGoogleSearchTool(client *websearch.Client) Tool {
	return &googleTool{client: client}
}

func (t *googleTool) Name() string { return NameGoogleSearch }

func (t *googleTool) Description() string {
	return "Search the web for additional or current information the knowledge base does not cover."
}

func (t *googleTool) Parameters() map[string]any {
	return schemaObject(map[string]any{
		"query": schemaString("What to search the web for."),
	}, "query")
}

func (t *googleTool) Invoke(ctx context.Context, input Input) (string, error) {
	if strings.TrimSpace(input.Query) == "" {
		return "", &ToolError{Tool: NameGoogleSearch, Message: "query must be a non-empty string"}
	}

	results, err := t.client.Search(ctx, input.Query)
	if err != nil {
		return "", &ToolError{Tool: NameGoogleSearch, Message: err.Error(), Retryable: true}
	}
	return websearch.Format(results), nil
}

// ============================================================================
// weather
// ============================================================================

// weatherTool wraps the current-conditions client.
type weatherTool struct {
	client *weather.Client
}

// NewWeatherTool creates the weather tool over client.
func NewWeatherTool(client *weather.Client) Tool {
	return &weatherTool{client: client}
}

func (t *weatherTool) Name() string { return NameWeather }

func (t *weatherTool) Description() string {
	return "Get current weather for a city, including the derived season. " +
		"Useful for seasonally appropriate diet and lifestyle advice."
}

func (t *weatherTool) Parameters() map[string]any {
	return schemaObject(map[string]any{
		"city":    schemaString("City to fetch weather for."),
		"country": schemaString("Optional ISO country code to disambiguate the city."),
	}, "city")
}

// weatherObservation extends the report with the derived season.
type weatherObservation struct {
	weather.Report
	Season string `json:"season"`
}

func (t *weatherTool) Invoke(ctx context.Context, input Input) (string, error) {
	city := strings.TrimSpace(input.City)
	if city == "" {
		// Older planners put the city first in the free-text query.
		if fields := strings.Fields(input.Query); len(fields) > 0 {
			city = fields[0]
		}
	}
	if city == "" {
		return "", &ToolError{Tool: NameWeather, Message: "city is required"}
	}

	report, err := t.client.Current(ctx, city, input.Country)
	if err != nil {
		return "", &ToolError{Tool: NameWeather, Message: err.Error(), Retryable: true}
	}

	return marshalObservation(weatherObservation{Report: *report, Season: report.Season()})
}

// ============================================================================
// dosha
// ============================================================================

// doshaTool wraps the questionnaire calculator.
type doshaTool struct {
	calc *dosha.Calculator
}

// NewDoshaTool creates the dosha tool over calc.
func NewDoshaTool(calc *dosha.Calculator) Tool {
	return &doshaTool{calc: calc}
}

func (t *doshaTool) Name() string { return NameDosha }

func (t *doshaTool) Description() string {
	return "Determine a person's Ayurvedic dosha constitution from questionnaire responses. " +
		"Keys are question IDs such as body_frame or skin_type; values are the chosen option values."
}

func (t *doshaTool) Parameters() map[string]any {
	return schemaObject(map[string]any{
		"responses": schemaStringMap("Questionnaire answers keyed by question ID."),
	}, "responses")
}

// analysisCategories fixes the detailed-analysis presentation order.
var analysisCategories = []string{
	dosha.CategoryPhysical,
	dosha.CategoryMental,
	dosha.CategoryEmotional,
	dosha.CategoryLifestyle,
}

func (t *doshaTool) Invoke(_ context.Context, input Input) (string, error) {
	if len(input.Responses) == 0 {
		return "", &ToolError{Tool: NameDosha, Message: "no questionnaire responses provided"}
	}

	result := t.calc.Calculate(input.Responses)

	lines := []string{
		"## Dosha Analysis Results\n",
		fmt.Sprintf("### Primary Dosha: %s (Confidence: %.1f%%)\n", result.PrimaryDosha, result.Confidence*100),
		result.Analysis["overall"],
		"\n### Detailed Analysis",
	}
	for _, category := range analysisCategories {
		text, ok := result.Analysis[category]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("\n**%s:** %s", capitalize(category), text))
	}
	if len(result.Recommendations) > 0 {
		lines = append(lines, "\n\n### Recommendations for Balance\n")
		lines = append(lines, result.Recommendations...)
	}
	lines = append(lines, "\n\n*Note: This is a preliminary analysis. For a complete assessment "+
		"and personalized recommendations, please consult with an Ayurvedic practitioner.*")

	return strings.Join(lines, "\n"), nil
}

// ============================================================================
// recommendations
// ============================================================================

// recommendTool wraps the personalized recommendation ranker.
type recommendTool struct {
	ranker *ranking.Ranker
}

// NewRecommendationTool creates the recommendations tool over ranker.
func NewRecommendationTool(ranker *ranking.Ranker) Tool {
	return &recommendTool{ranker: ranker}
}

func (t *recommendTool) Name() string { return NameRecommendations }

func (t *recommendTool) Description() string {
	return "Get personalized Ayurvedic recommendations, filtered by dosha, season, " +
		"time of day or health concern. Results are ranked and classified as food, lifestyle or general."
}

func (t *recommendTool) Parameters() map[string]any {
	return schemaObject(map[string]any{
		"query":          schemaString("Optional free-text query to search for."),
		"dosha":          schemaString("Dosha to balance, e.g. vata."),
		"season":         schemaString("Current season, e.g. winter or monsoon."),
		"time_of_day":    schemaString("Time of day the advice is for, e.g. morning."),
		"health_concern": schemaString("Specific health concern to address, e.g. insomnia."),
	})
}

func (t *recommendTool) Invoke(ctx context.Context, input Input) (string, error) {
	q := ranking.Query{
		Text:          input.Query,
		Dosha:         input.Dosha,
		Season:        input.Season,
		TimeOfDay:     input.TimeOfDay,
		HealthConcern: input.HealthConcern,
	}
	if q == (ranking.Query{}) {
		return "", &ToolError{Tool: NameRecommendations, Message: "provide a query or at least one filter"}
	}

	recs := t.ranker.Recommendations(ctx, input.UserID, q)
	return marshalObservation(recs)
}

// ============================================================================
// article_recommender
// ============================================================================

// defaultArticleLimit is the recommendation count when the planner does
// not ask for a specific max_results.
const defaultArticleLimit = 5

// articleTool surfaces popular articles through the usage tracker.
type articleTool struct {
	tracker *tracker.Tracker
}

// NewArticleTool creates the article_recommender tool over trk.
func NewArticleTool(trk *tracker.Tracker) Tool {
	return &articleTool{tracker: trk}
}

func (t *articleTool) Name() string { return NameArticleRecommender }

func (t *articleTool) Description() string {
	return "Recommend popular Ayurveda articles the user has not seen yet, " +
		"ranked by engagement with a recency decay."
}

func (t *articleTool) Parameters() map[string]any {
	return schemaObject(map[string]any{
		"max_results": schemaInteger("Maximum number of articles to return. Defaults to 5."),
	})
}

// articleResponse is the JSON observation for article recommendations.
type articleResponse struct {
	Status   string         `json:"status"`
	Articles []articleEntry `json:"articles"`
	Count    int            `json:"count"`
}

type articleEntry struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func (t *articleTool) Invoke(_ context.Context, input Input) (string, error) {
	limit := input.MaxResults
	if limit <= 0 {
		limit = defaultArticleLimit
	}

	recs := t.tracker.RecommendArticles(input.UserID, limit, true)

	articles := make([]articleEntry, 0, len(recs))
	for _, rec := range recs {
		articles = append(articles, articleEntry{ID: rec.ArticleID, Score: rec.Score})
		// Recommended articles count as viewed, so the next call moves on
		// to fresh ones.
		t.tracker.LogArticleInteraction(input.UserID, rec.ArticleID, tracker.InteractionView, nil,
			map[string]any{"source": "agent_recommendation"})
	}

	return marshalObservation(articleResponse{Status: "success", Articles: articles, Count: len(articles)})
}

// ============================================================================
// herb_recommender
// ============================================================================

// herbTool wraps the herb recommender.
type herbTool struct {
	recommender *herbs.Recommender
}

// NewHerbTool creates the herb_recommender tool over rec.
func NewHerbTool(rec *herbs.Recommender) Tool {
	return &herbTool{recommender: rec}
}

func (t *herbTool) Name() string { return NameHerbRecommender }

func (t *herbTool) Description() string {
	return "Recommend herbs for the given symptoms, dosha and season, " +
		"excluding anything the user is contraindicated for."
}

func (t *herbTool) Parameters() map[string]any {
	return schemaObject(map[string]any{
		"symptoms":          schemaStringArray("Symptoms the herbs should address."),
		"dosha":             schemaString("Dosha to balance, e.g. pitta."),
		"current_ailments":  schemaStringArray("Diagnosed conditions to take into account."),
		"season":            schemaString("Current season, e.g. winter."),
		"contraindications": schemaStringArray("Herbs or substances the user must avoid."),
	})
}

func (t *herbTool) Invoke(ctx context.Context, input Input) (string, error) {
	req := herbs.Request{
		Symptoms:          input.Symptoms,
		Dosha:             input.Dosha,
		CurrentAilments:   input.CurrentAilments,
		Season:            input.Season,
		Contraindications: input.Contraindications,
	}

	return marshalObservation(t.recommender.Recommend(ctx, input.UserID, req))
}

// ============================================================================
// shared helpers
// ============================================================================

// marshalObservation renders v as the JSON observation string.
func marshalObservation(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode observation: %w", err)
	}
	return string(payload), nil
}

func metaStringOr(m map[string]any, key, fallback string) string {
	if m != nil {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func metaInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
