package core

type (
	// RetrospectiveDiary is a ranked diary entry inside a retrospective.
	RetrospectiveDiary struct {
		DiaryID   string  `json:"diary_id"`
		TxID      string  `json:"tx_id"`
		Title     string  `json:"title"`
		Date      Date    `json:"date"`
		Amount    float64 `json:"amount"`
		Sentiment int     `json:"sentiment"`
		Content   string  `json:"content"`
	}

	// RetrospectiveEvent is a ranked transaction inside a retrospective,
	// annotated with its linked diary when one exists.
	RetrospectiveEvent struct {
		TxID      string  `json:"tx_id"`
		Title     string  `json:"title"`
		Date      Date    `json:"date"`
		Amount    float64 `json:"amount"`
		Sentiment int     `json:"sentiment"`
		HasDiary  bool    `json:"has_diary"`
		DiaryID   string  `json:"diary_id,omitempty"`
	}

	// EmotionBucket counts in-window transactions at one mood score.
	EmotionBucket struct {
		Score int    `json:"score"`
		Label string `json:"label"`
		Count int    `json:"count"`
	}

	// DailyMood is one point of the daily mood series: the rounded mean
	// mood of a calendar day and how many transactions produced it.
	DailyMood struct {
		Date  Date `json:"date"`
		Mood  int  `json:"mood"`
		Count int  `json:"count"`
	}

	// InsufficiencyFlags record which rankings had no data to rank.
	InsufficiencyFlags struct {
		TopDiaries   bool `json:"top_diaries"`
		WorstDiaries bool `json:"worst_diaries"`
		TopEvents    bool `json:"top_events"`
		WorstEvents  bool `json:"worst_events"`
	}

	// RetrospectiveSummary is the full time-windowed aggregate.
	RetrospectiveSummary struct {
		TopDiaries   []RetrospectiveDiary `json:"happy_money_top3_diaries"`
		WorstDiaries []RetrospectiveDiary `json:"happy_money_worst3_diaries"`
		TopEvents    []RetrospectiveEvent `json:"happy_money_top3_events"`
		WorstEvents  []RetrospectiveEvent `json:"happy_money_worst3_events"`
		Buckets      []EmotionBucket      `json:"emotion_buckets"`
		DailyMoods   []DailyMood          `json:"daily_moods"`
		Narrative    string               `json:"narrative"`
		Insufficient InsufficiencyFlags   `json:"insufficient"`
	}
)

// EmptyRetrospective is the terminal result for a window with no
// transactions: empty rankings and every insufficiency flag set.
func EmptyRetrospective(narrative string) RetrospectiveSummary {
	return RetrospectiveSummary{
		TopDiaries:   []RetrospectiveDiary{},
		WorstDiaries: []RetrospectiveDiary{},
		TopEvents:    []RetrospectiveEvent{},
		WorstEvents:  []RetrospectiveEvent{},
		Buckets:      []EmotionBucket{},
		DailyMoods:   []DailyMood{},
		Narrative:    narrative,
		Insufficient: InsufficiencyFlags{
			TopDiaries:   true,
			WorstDiaries: true,
			TopEvents:    true,
			WorstEvents:  true,
		},
	}
}
