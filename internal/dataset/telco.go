// Package dataset loads and cleans the Telco customer churn CSV that
// the predictor trains on.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/churn"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/pkg/httpretry"
)

// DefaultSourceURL points at IBM's public copy of the Telco Customer
// Churn dataset.
const DefaultSourceURL = "https://raw.githubusercontent.com/IBM/telco-customer-churn-on-icp4d/master/data/Telco-Customer-Churn.csv"

// DefaultLabelColumn is the target column of the Telco dataset.
const DefaultLabelColumn = "Churn"

// coercedColumn has blank cells for customers with zero tenure; rows
// where it does not parse as a number are dropped during Prepare.
const coercedColumn = "TotalCharges"

var (
	ErrEmptyFile      = errors.New("dataset file is empty")
	ErrNoRows         = errors.New("dataset has no data rows")
	ErrMissingColumns = errors.New("dataset is missing required columns")
)

// DefaultFeatures returns the serving schema of the prediction API, in
// the column order models are trained with.
func DefaultFeatures() []string {
	return []string{
		"gender",
		"SeniorCitizen",
		"Partner",
		"Dependents",
		"tenure",
		"Contract",
		"PaperlessBilling",
		"PaymentMethod",
		"InternetService",
		"OnlineSecurity",
		"TechSupport",
		"MonthlyCharges",
		"TotalCharges",
	}
}

// httpClient retries transient download failures; the default source is
// a raw GitHub URL that throttles now and then.
var httpClient httpretry.Doer = httpretry.New(&http.Client{Timeout: 2 * time.Minute}, 3)

// Load reads the churn dataset from a local path or an http(s) URL.
func Load(ctx context.Context, source string) (*churn.Dataset, error) {
	var r io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("building dataset request: %w", err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("downloading dataset: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("downloading dataset: %s returned %s", source, resp.Status)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening dataset: %w", err)
		}
		r = f
	}
	defer r.Close()

	return Parse(r)
}

// Parse reads CSV content into a dataset. The first row is the header.
func Parse(r io.Reader) (*churn.Dataset, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	ds := &churn.Dataset{Columns: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading dataset line %d: %w", len(ds.Rows)+2, err)
		}
		ds.Rows = append(ds.Rows, row)
	}
	if len(ds.Rows) == 0 {
		return nil, ErrNoRows
	}
	return ds, nil
}

// Prepare projects the dataset onto the given feature columns plus the
// label column and drops rows whose TotalCharges cell is not numeric,
// mirroring how the source file is cleaned before training.
func Prepare(ds *churn.Dataset, features []string, label string) (*churn.Dataset, error) {
	selected := make([]string, 0, len(features)+1)
	selected = append(selected, features...)
	selected = append(selected, label)

	byName := make(map[string]int, len(ds.Columns))
	for i, name := range ds.Columns {
		byName[strings.TrimSpace(name)] = i
	}

	indexes := make([]int, 0, len(selected))
	var missing []string
	for _, name := range selected {
		i, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		indexes = append(indexes, i)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	coerced := -1
	for i, name := range selected {
		if name == coercedColumn {
			coerced = i
			break
		}
	}

	out := &churn.Dataset{Columns: selected}
	dropped := 0
	for _, row := range ds.Rows {
		cells := make([]string, len(indexes))
		for j, i := range indexes {
			cells[j] = strings.TrimSpace(row[i])
		}
		if coerced >= 0 {
			if _, err := strconv.ParseFloat(cells[coerced], 64); err != nil {
				dropped++
				continue
			}
		}
		out.Rows = append(out.Rows, cells)
	}
	if dropped > 0 {
		log.Printf("[dataset] dropped %d rows with non-numeric %s", dropped, coercedColumn)
	}
	if len(out.Rows) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}
