package market

import "math"

// Sentiment labels
const (
	SentimentBullish = "bullish"
	SentimentNeutral = "neutral"
	SentimentBearish = "bearish"
)

// SentimentReading is a coarse read of market mood
type SentimentReading struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"sentiment_score"` // 0-100
	UpRatio   float64 `json:"up_ratio"`        // percent of limit moves that were up
	DownRatio float64 `json:"down_ratio"`
}

// Sentiment reads mood from limit-up/down counts. A side holding more
// than 60% of limit moves sets the label; with no limit moves at all the
// main index change decides (beyond ±1%).
func Sentiment(limitUp, limitDown int, indexChangePercent float64) SentimentReading {
	total := limitUp + limitDown
	if total == 0 {
		switch {
		case indexChangePercent > 1:
			return SentimentReading{Sentiment: SentimentBullish, Score: 65}
		case indexChangePercent < -1:
			return SentimentReading{Sentiment: SentimentBearish, Score: 35}
		default:
			return SentimentReading{Sentiment: SentimentNeutral, Score: 50}
		}
	}

	up := float64(limitUp) / float64(total)
	down := float64(limitDown) / float64(total)
	reading := SentimentReading{
		Sentiment: SentimentNeutral,
		Score:     50,
		UpRatio:   round1(up * 100),
		DownRatio: round1(down * 100),
	}
	switch {
	case up > 0.6:
		reading.Sentiment = SentimentBullish
		reading.Score = round1(80 + (up-0.6)*50)
	case down > 0.6:
		reading.Sentiment = SentimentBearish
		reading.Score = round1(20 - (down-0.6)*50)
	}
	return reading
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
