package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/history"
)

// Columns an uploaded CSV must carry; the rest take the usual defaults.
var requiredBatchColumns = []string{"tenure", "Contract", "PaymentMethod", "MonthlyCharges", "TotalCharges"}

// PredictBatch scores every row of an uploaded CSV and records each
// result. Rows are scored and recorded in file order; a bad row aborts
// the request, keeping the rows already scored in history.
func (h *Handlers) PredictBatch(w http.ResponseWriter, r *http.Request) {
	if !h.predictor.Trained() {
		respondError(w, http.StatusServiceUnavailable, "Model not trained")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided: "+err.Error())
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".csv") {
		respondError(w, http.StatusBadRequest, "Only CSV files are supported")
		return
	}

	reader := csv.NewReader(file)
	columns, err := reader.Read()
	if err == io.EOF {
		respondError(w, http.StatusBadRequest, "CSV file is empty")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Error processing file: "+err.Error())
		return
	}
	columns[0] = strings.TrimPrefix(columns[0], "\ufeff")

	colIdx := make(map[string]int, len(columns))
	for i, name := range columns {
		colIdx[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredBatchColumns {
		if _, ok := colIdx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		respondError(w, http.StatusBadRequest, "Missing required columns: "+strings.Join(missing, ", "))
		return
	}

	idIdx := -1
	if i, ok := colIdx["customerID"]; ok {
		idIdx = i
	} else if i, ok := colIdx["customer_id"]; ok {
		idIdx = i
	}

	resp := batchResponse{Predictions: []batchItem{}}
	var probabilitySum float64

	for i := 0; ; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			respondError(w, http.StatusBadRequest, "Error processing file: "+err.Error())
			return
		}

		customer, err := customerFromRow(row, colIdx)
		if err != nil {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("Error processing file: line %d: %v", i+2, err))
			return
		}

		result, err := h.predictor.Predict(customer.record())
		if err != nil {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("Error processing file: line %d: %v", i+2, err))
			return
		}

		customerID := fmt.Sprintf("row_%d", i)
		if idIdx >= 0 {
			customerID = strings.TrimSpace(row[idIdx])
		}

		h.recordPrediction(r.Context(), customerID, customer, result, history.TypeBatch)

		resp.Summary.RiskDistribution.add(result.RiskLevel)
		if result.WillChurn {
			resp.Summary.PredictedChurners++
		}
		probabilitySum += result.ChurnProbability

		resp.Predictions = append(resp.Predictions, batchItem{
			CustomerID:       customerID,
			ChurnProbability: result.ChurnProbability,
			RiskLevel:        result.RiskLevel,
			WillChurn:        result.WillChurn,
		})
	}

	total := len(resp.Predictions)
	resp.TotalCustomers = total
	resp.Summary.TotalCustomers = total
	if total > 0 {
		resp.Summary.ChurnRate = round2(float64(resp.Summary.PredictedChurners) / float64(total) * 100)
		resp.Summary.AverageChurnProbability = round2(probabilitySum / float64(total))
	}

	respondJSON(w, http.StatusOK, resp)
}

// customerFromRow builds a CustomerInput from one CSV row, filling
// absent columns with the same defaults as the JSON endpoint.
func customerFromRow(row []string, colIdx map[string]int) (CustomerInput, error) {
	var c CustomerInput

	cell := func(name string) (string, bool) {
		i, ok := colIdx[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	var err error
	if v, ok := cell("tenure"); ok {
		if c.Tenure, err = intField("tenure", v); err != nil {
			return c, err
		}
	}
	if v, ok := cell("SeniorCitizen"); ok {
		if c.SeniorCitizen, err = intField("SeniorCitizen", v); err != nil {
			return c, err
		}
	}
	if v, ok := cell("MonthlyCharges"); ok {
		if c.MonthlyCharges, err = floatField("MonthlyCharges", v); err != nil {
			return c, err
		}
	}
	if v, ok := cell("TotalCharges"); ok {
		if c.TotalCharges, err = floatField("TotalCharges", v); err != nil {
			return c, err
		}
	}
	if v, ok := cell("gender"); ok {
		c.Gender = strPtr(v)
	}
	if v, ok := cell("Partner"); ok {
		c.Partner = strPtr(v)
	}
	if v, ok := cell("Dependents"); ok {
		c.Dependents = strPtr(v)
	}
	if v, ok := cell("Contract"); ok {
		c.Contract = strPtr(v)
	}
	if v, ok := cell("PaperlessBilling"); ok {
		c.PaperlessBilling = strPtr(v)
	}
	if v, ok := cell("PaymentMethod"); ok {
		c.PaymentMethod = strPtr(v)
	}
	if v, ok := cell("InternetService"); ok {
		c.InternetService = strPtr(v)
	}
	if v, ok := cell("OnlineSecurity"); ok {
		c.OnlineSecurity = strPtr(v)
	}
	if v, ok := cell("TechSupport"); ok {
		c.TechSupport = strPtr(v)
	}

	c.applyDefaults()
	return c, nil
}

func intField(name, raw string) (*int, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not numeric", name, raw)
	}
	n := int(f)
	return &n, nil
}

func floatField(name, raw string) (*float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not numeric", name, raw)
	}
	return &f, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
