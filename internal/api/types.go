package api

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/churn"
)

// Optional input fields fall back to the most common values in the
// Telco dataset so short payloads still predict.
const (
	defaultGender           = "Male"
	defaultPartner          = "No"
	defaultDependents       = "No"
	defaultPaperlessBilling = "Yes"
	defaultInternetService  = "Fiber optic"
	defaultOnlineSecurity   = "No"
	defaultTechSupport      = "No"
)

// CustomerInput is the prediction request body. Pointer fields
// distinguish omitted values from explicit ones; the five fields
// without defaults are required.
type CustomerInput struct {
	Gender           *string  `json:"gender"`
	SeniorCitizen    *int     `json:"SeniorCitizen"`
	Partner          *string  `json:"Partner"`
	Dependents       *string  `json:"Dependents"`
	Tenure           *int     `json:"tenure"`
	Contract         *string  `json:"Contract"`
	PaperlessBilling *string  `json:"PaperlessBilling"`
	PaymentMethod    *string  `json:"PaymentMethod"`
	InternetService  *string  `json:"InternetService"`
	OnlineSecurity   *string  `json:"OnlineSecurity"`
	TechSupport      *string  `json:"TechSupport"`
	MonthlyCharges   *float64 `json:"MonthlyCharges"`
	TotalCharges     *float64 `json:"TotalCharges"`
}

func (c *CustomerInput) missingFields() []string {
	var missing []string
	if c.Tenure == nil {
		missing = append(missing, "tenure")
	}
	if c.Contract == nil {
		missing = append(missing, "Contract")
	}
	if c.PaymentMethod == nil {
		missing = append(missing, "PaymentMethod")
	}
	if c.MonthlyCharges == nil {
		missing = append(missing, "MonthlyCharges")
	}
	if c.TotalCharges == nil {
		missing = append(missing, "TotalCharges")
	}
	return missing
}

func (c *CustomerInput) applyDefaults() {
	if c.Gender == nil {
		c.Gender = strPtr(defaultGender)
	}
	if c.SeniorCitizen == nil {
		c.SeniorCitizen = intPtr(0)
	}
	if c.Partner == nil {
		c.Partner = strPtr(defaultPartner)
	}
	if c.Dependents == nil {
		c.Dependents = strPtr(defaultDependents)
	}
	if c.PaperlessBilling == nil {
		c.PaperlessBilling = strPtr(defaultPaperlessBilling)
	}
	if c.InternetService == nil {
		c.InternetService = strPtr(defaultInternetService)
	}
	if c.OnlineSecurity == nil {
		c.OnlineSecurity = strPtr(defaultOnlineSecurity)
	}
	if c.TechSupport == nil {
		c.TechSupport = strPtr(defaultTechSupport)
	}
}

// record converts the input to the flat feature form the model scores.
// Defaults must be applied and required fields checked first.
func (c *CustomerInput) record() churn.Record {
	return churn.Record{
		"gender":           churn.Categorical(*c.Gender),
		"SeniorCitizen":    churn.Numeric(float64(*c.SeniorCitizen)),
		"Partner":          churn.Categorical(*c.Partner),
		"Dependents":       churn.Categorical(*c.Dependents),
		"tenure":           churn.Numeric(float64(*c.Tenure)),
		"Contract":         churn.Categorical(*c.Contract),
		"PaperlessBilling": churn.Categorical(*c.PaperlessBilling),
		"PaymentMethod":    churn.Categorical(*c.PaymentMethod),
		"InternetService":  churn.Categorical(*c.InternetService),
		"OnlineSecurity":   churn.Categorical(*c.OnlineSecurity),
		"TechSupport":      churn.Categorical(*c.TechSupport),
		"MonthlyCharges":   churn.Numeric(*c.MonthlyCharges),
		"TotalCharges":     churn.Numeric(*c.TotalCharges),
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type metricsResponse struct {
	Accuracy          float64           `json:"accuracy"`
	TrainSamples      int               `json:"train_samples"`
	TestSamples       int               `json:"test_samples"`
	TotalSamples      int               `json:"total_samples"`
	FeatureImportance featureImportance `json:"feature_importance"`
}

type batchItem struct {
	CustomerID       string          `json:"customer_id"`
	ChurnProbability float64         `json:"churn_probability"`
	RiskLevel        churn.RiskLevel `json:"risk_level"`
	WillChurn        bool            `json:"will_churn"`
}

type batchSummary struct {
	TotalCustomers          int              `json:"total_customers"`
	PredictedChurners       int              `json:"predicted_churners"`
	ChurnRate               float64          `json:"churn_rate"`
	AverageChurnProbability float64          `json:"average_churn_probability"`
	RiskDistribution        riskDistribution `json:"risk_distribution"`
}

type batchResponse struct {
	TotalCustomers int          `json:"total_customers"`
	Predictions    []batchItem  `json:"predictions"`
	Summary        batchSummary `json:"summary"`
}

// riskDistribution counts predictions per tier. Every tier is present
// in the JSON output even when zero.
type riskDistribution struct {
	Low      int `json:"Low"`
	Medium   int `json:"Medium"`
	High     int `json:"High"`
	Critical int `json:"Critical"`
}

func (d *riskDistribution) add(level churn.RiskLevel) {
	switch level {
	case churn.RiskLow:
		d.Low++
	case churn.RiskMedium:
		d.Medium++
	case churn.RiskHigh:
		d.High++
	case churn.RiskCritical:
		d.Critical++
	}
}

type featureWeight struct {
	Name   string
	Weight float64
}

// featureImportance marshals as a JSON object with features in
// descending weight order, heaviest first.
type featureImportance []featureWeight

func importanceByWeight(weights map[string]float64, order []string) featureImportance {
	out := make(featureImportance, 0, len(weights))
	for _, name := range order {
		if w, ok := weights[name]; ok {
			out = append(out, featureWeight{Name: name, Weight: w})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

func (fi featureImportance) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fw := range fi {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(fw.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		weight, err := json.Marshal(fw.Weight)
		if err != nil {
			return nil, err
		}
		buf.Write(weight)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
