package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"feelance/internal/core"
	"feelance/internal/log"
	"feelance/internal/storage"
)

// DefaultRetrospectiveMonths is the window length used when the caller
// passes a non-positive value, and the window mutation publishers warm.
const DefaultRetrospectiveMonths = 12

// windowDays is the fixed month approximation. The window is months*30
// days, not calendar months.
const windowDays = 30

const emptyStateNarrative = "There is nothing to look back on yet. Record a few transactions and their moods, then come back for your retrospective."

// RetrospectiveService aggregates a user's transactions and diaries
// over a trailing window into ranked lists, mood buckets, a daily mood
// series and a narrative summary. The narrative is best effort: cache,
// then generator, then a templated fallback, and its failure never
// fails the aggregate.
type RetrospectiveService struct {
	store  RetrospectiveStore
	gen    Generator
	logger *log.Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewRetrospectiveService(store RetrospectiveStore, gen Generator, ttl time.Duration, logger *log.Logger) *RetrospectiveService {
	return &RetrospectiveService{
		store:  store,
		gen:    gen,
		logger: logger.WithComponent(log.ComponentRetrospective),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Summarize builds the full retrospective for a user. A window with no
// transactions is the terminal empty state, not an error.
func (s *RetrospectiveService) Summarize(ctx context.Context, userID string, months int) (core.RetrospectiveSummary, error) {
	if months <= 0 {
		months = DefaultRetrospectiveMonths
	}

	summary, empty, err := s.aggregate(ctx, userID, months)
	if err != nil {
		return core.RetrospectiveSummary{}, err
	}
	if empty {
		return summary, nil
	}

	summary.Narrative = s.narrative(ctx, userID, months, summary)
	return summary, nil
}

// Refresh regenerates the narrative for (userID, months) and persists
// it, bypassing the cache read. The worker calls this after mutations
// so interactive requests find a fresh cached row.
func (s *RetrospectiveService) Refresh(ctx context.Context, userID string, months int) error {
	if s.gen == nil {
		return nil
	}
	if months <= 0 {
		months = DefaultRetrospectiveMonths
	}

	summary, empty, err := s.aggregate(ctx, userID, months)
	if err != nil {
		return err
	}
	if empty {
		return nil
	}

	text, err := s.gen.Complete(ctx, narrativeRequest(summary))
	if err != nil {
		return fmt.Errorf("refresh narrative: %w", err)
	}
	if err := s.store.SaveCachedSummary(ctx, userID, months, text, s.now().UTC()); err != nil {
		return fmt.Errorf("save narrative: %w", err)
	}

	s.logger.InfoContext(ctx, "Narrative refreshed",
		log.FieldOperation, log.OpRefresh,
		log.FieldUserID, userID, log.FieldMonths, months)
	return nil
}

// aggregate computes everything except the narrative. The bool result
// reports the empty-window terminal branch.
func (s *RetrospectiveService) aggregate(ctx context.Context, userID string, months int) (core.RetrospectiveSummary, bool, error) {
	today := core.DateOf(s.now().UTC())
	windowStart := core.DateOf(today.AddDate(0, 0, -months*windowDays))

	txs, err := s.store.ListTransactions(ctx, userID, storage.TransactionFilter{Start: windowStart})
	if err != nil {
		return core.RetrospectiveSummary{}, false, err
	}
	if len(txs) == 0 {
		return core.EmptyRetrospective(emptyStateNarrative), true, nil
	}

	entries, err := s.store.ListDiaries(ctx, userID)
	if err != nil {
		return core.RetrospectiveSummary{}, false, err
	}

	txByID := make(map[string]core.Transaction, len(txs))
	for _, tx := range txs {
		txByID[tx.ID] = tx
	}

	// Inner join: diaries without an in-window transaction are dropped.
	// The effective date falls back to the transaction's date.
	diaries := []core.RetrospectiveDiary{}
	diaryByTx := map[string]string{}
	for _, e := range entries {
		tx, ok := txByID[e.TxID]
		if !ok {
			continue
		}
		eff := tx.Date
		if e.TransactionDate != nil && !e.TransactionDate.IsZero() {
			eff = core.DateOf(*e.TransactionDate)
		}
		if eff.Before(windowStart.Time) {
			continue
		}
		diaries = append(diaries, core.RetrospectiveDiary{
			DiaryID:   e.ID,
			TxID:      e.TxID,
			Title:     e.DiaryTitle,
			Date:      eff,
			Amount:    tx.HappyAmount,
			Sentiment: tx.MoodScore,
			Content:   e.DiaryBody,
		})
		if _, seen := diaryByTx[e.TxID]; !seen {
			diaryByTx[e.TxID] = e.ID
		}
	}

	posDiaries := filterDiaries(diaries, func(d core.RetrospectiveDiary) bool { return d.Sentiment > 0 })
	negDiaries := filterDiaries(diaries, func(d core.RetrospectiveDiary) bool { return d.Sentiment < 0 })
	posTxs := filterTxs(txs, func(t core.Transaction) bool { return t.MoodScore > 0 })
	negTxs := filterTxs(txs, func(t core.Transaction) bool { return t.MoodScore < 0 })

	summary := core.RetrospectiveSummary{
		TopDiaries:   topDiaries(posDiaries, false),
		WorstDiaries: topDiaries(negDiaries, true),
		TopEvents:    topEvents(posTxs, false, diaryByTx),
		WorstEvents:  topEvents(negTxs, true, diaryByTx),
		Buckets:      emotionBuckets(txs),
		DailyMoods:   dailyMoods(txs, windowStart, today),
		Insufficient: core.InsufficiencyFlags{
			TopDiaries:   len(posDiaries) == 0,
			WorstDiaries: len(negDiaries) == 0,
			TopEvents:    len(posTxs) == 0,
			WorstEvents:  len(negTxs) == 0,
		},
	}
	return summary, false, nil
}

// narrative resolves the summary text: fresh cache row, then a
// generation request, then the templated fallback.
func (s *RetrospectiveService) narrative(ctx context.Context, userID string, months int, summary core.RetrospectiveSummary) string {
	cached, err := s.store.GetCachedSummary(ctx, userID, months, s.ttl)
	if err == nil {
		return cached
	}

	if s.gen == nil {
		return fallbackNarrative(summary.Insufficient)
	}
	text, err := s.gen.Complete(ctx, narrativeRequest(summary))
	if err != nil {
		s.logger.WarnContext(ctx, "Narrative generation failed, using fallback",
			log.FieldError, err, log.FieldUserID, userID, log.FieldMonths, months)
		return fallbackNarrative(summary.Insufficient)
	}

	if err := s.store.SaveCachedSummary(ctx, userID, months, text, s.now().UTC()); err != nil {
		s.logger.WarnContext(ctx, "Failed to cache narrative",
			log.FieldError, err, log.FieldUserID, userID, log.FieldMonths, months)
	}
	return text
}

func filterDiaries(in []core.RetrospectiveDiary, keep func(core.RetrospectiveDiary) bool) []core.RetrospectiveDiary {
	out := []core.RetrospectiveDiary{}
	for _, d := range in {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func filterTxs(in []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	out := []core.Transaction{}
	for _, t := range in {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func topDiaries(in []core.RetrospectiveDiary, ascending bool) []core.RetrospectiveDiary {
	out := append([]core.RetrospectiveDiary{}, in...)
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].Amount < out[j].Amount
		}
		return out[i].Amount > out[j].Amount
	})
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

func topEvents(in []core.Transaction, ascending bool, diaryByTx map[string]string) []core.RetrospectiveEvent {
	txs := append([]core.Transaction{}, in...)
	sort.SliceStable(txs, func(i, j int) bool {
		if ascending {
			return txs[i].HappyAmount < txs[j].HappyAmount
		}
		return txs[i].HappyAmount > txs[j].HappyAmount
	})
	if len(txs) > 3 {
		txs = txs[:3]
	}

	out := make([]core.RetrospectiveEvent, 0, len(txs))
	for _, tx := range txs {
		diaryID, hasDiary := diaryByTx[tx.ID]
		out = append(out, core.RetrospectiveEvent{
			TxID:      tx.ID,
			Title:     tx.Item,
			Date:      tx.Date,
			Amount:    tx.HappyAmount,
			Sentiment: tx.MoodScore,
			HasDiary:  hasDiary,
			DiaryID:   diaryID,
		})
	}
	return out
}

func emotionBuckets(txs []core.Transaction) []core.EmotionBucket {
	counts := map[int]int{}
	for _, tx := range txs {
		counts[tx.MoodScore]++
	}
	buckets := []core.EmotionBucket{}
	for score := core.MoodMin; score <= core.MoodMax; score++ {
		if counts[score] == 0 {
			continue
		}
		buckets = append(buckets, core.EmotionBucket{
			Score: score,
			Label: core.MoodLabel(score),
			Count: counts[score],
		})
	}
	return buckets
}

func dailyMoods(txs []core.Transaction, windowStart, today core.Date) []core.DailyMood {
	type acc struct {
		sum   int
		count int
	}
	byDay := map[string]acc{}
	for _, tx := range txs {
		key := tx.Date.String()
		a := byDay[key]
		a.sum += tx.MoodScore
		a.count++
		byDay[key] = a
	}

	series := []core.DailyMood{}
	for day := windowStart; !day.After(today.Time); day = core.DateOf(day.AddDate(0, 0, 1)) {
		a := byDay[day.String()]
		mood := 0
		if a.count > 0 {
			mood = clampMood(int(math.Round(float64(a.sum) / float64(a.count))))
		}
		series = append(series, core.DailyMood{Date: day, Mood: mood, Count: a.count})
	}
	return series
}

func clampMood(m int) int {
	if m < core.MoodMin {
		return core.MoodMin
	}
	if m > core.MoodMax {
		return core.MoodMax
	}
	return m
}

// narrativeRequest builds the generation request from the ranked
// diaries, noting explicitly when a ranking had no data.
func narrativeRequest(summary core.RetrospectiveSummary) []core.ChatMessage {
	var b strings.Builder
	b.WriteString("Below are the spending events a user felt most strongly about over the period, drawn from their own diary entries.\n\n")

	b.WriteString("Events that brought the most happiness:\n")
	writeDiaryLines(&b, summary.TopDiaries, summary.Insufficient.TopDiaries)
	b.WriteString("\nEvents that brought the most regret:\n")
	writeDiaryLines(&b, summary.WorstDiaries, summary.Insufficient.WorstDiaries)

	system := "You write short retrospective summaries of how a user's spending made them feel. " +
		"Write one warm, concrete paragraph in the second person, grounded only in the material provided. " +
		"If a section notes missing data, acknowledge it briefly instead of inventing events."
	return []core.ChatMessage{
		{Role: core.RoleSystem, Content: system},
		{Role: core.RoleUser, Content: b.String()},
	}
}

func writeDiaryLines(b *strings.Builder, diaries []core.RetrospectiveDiary, insufficient bool) {
	if insufficient || len(diaries) == 0 {
		b.WriteString("(not enough diary data for this ranking)\n")
		return
	}
	for _, d := range diaries {
		fmt.Fprintf(b, "- %s (%s, %s, happy money %.0f): %s\n",
			d.Title, d.Date, core.MoodLabel(d.Sentiment), d.Amount, d.Content)
	}
}

// fallbackNarrative is the deterministic text used when no narrative
// can be generated, chosen by which rankings had data.
func fallbackNarrative(flags core.InsufficiencyFlags) string {
	hasPositive := !flags.TopDiaries || !flags.TopEvents
	hasNegative := !flags.WorstDiaries || !flags.WorstEvents
	switch {
	case hasPositive && hasNegative:
		return "This period had both spending you were glad about and spending you regretted. Revisit the top and worst events to see what set them apart."
	case hasPositive:
		return "Your spending this period leaned happy. Revisit the top events to see what made them worth it."
	case hasNegative:
		return "Your spending this period leaned toward regret. Revisit the worst events to see what you would do differently."
	default:
		return "Not enough diary data yet to summarize this period. Write a few diaries about your transactions to unlock a richer retrospective."
	}
}
