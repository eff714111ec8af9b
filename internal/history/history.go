package history

import "encoding/json"

// Prediction types stored in the log.
const (
	TypeSingle = "single"
	TypeBatch  = "batch"
)

// Prediction is one recorded prediction.
type Prediction struct {
	ID               int64           `json:"id"`
	CustomerID       string          `json:"customer_id"`
	CustomerData     json.RawMessage `json:"customer_data"`
	ChurnProbability float64         `json:"churn_probability"`
	RiskLevel        string          `json:"risk_level"`
	WillChurn        bool            `json:"will_churn"`
	PredictionType   string          `json:"prediction_type"`
	CreatedAt        string          `json:"created_at"`
}

// Stats aggregates the whole prediction log.
type Stats struct {
	TotalPredictions   int            `json:"total_predictions"`
	OverallChurnRate   float64        `json:"overall_churn_rate"`
	AverageProbability float64        `json:"average_probability"`
	RiskDistribution   map[string]int `json:"risk_distribution"`
	RecentTrend        []TrendPoint   `json:"recent_trend"`
}

// TrendPoint is one day of prediction volume over the trailing week.
type TrendPoint struct {
	Date               string  `json:"date"`
	Count              int     `json:"count"`
	AverageProbability float64 `json:"avg_prob"`
}
