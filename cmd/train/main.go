// Command train fits the churn model from the command line and writes
// the resulting state to the configured store. The server picks it up
// on its next start instead of retraining.
//
// Usage:
//
//	go run ./cmd/train \
//	  -config=config/config.yaml \
//	  -dataset=data/telco_churn.csv \
//	  -out=data/models
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/boosting"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/churn"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/config"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/dataset"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "configuration file")
	source := flag.String("dataset", "", "dataset file or URL (overrides config)")
	out := flag.String("out", "", "local directory for the model state (overrides config)")
	noSave := flag.Bool("no-save", false, "train and report without saving the model")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *source != "" {
		cfg.Dataset.Source = *source
	}
	if *out != "" {
		cfg.Storage.Type = "local"
		cfg.Storage.LocalPath = *out
	}

	src := cfg.Dataset.Source
	if src == "" {
		src = dataset.DefaultSourceURL
	}
	features := cfg.Dataset.Features
	if len(features) == 0 {
		features = dataset.DefaultFeatures()
	}
	label := cfg.Dataset.LabelColumn
	if label == "" {
		label = dataset.DefaultLabelColumn
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	fmt.Println("=========================================================")
	fmt.Println(" ChurnShield AI Model Training")
	fmt.Println("=========================================================")
	fmt.Printf("Dataset:       %s\n", src)
	fmt.Printf("Label column:  %s\n", label)
	fmt.Printf("Features:      %d\n", len(features))
	fmt.Printf("Rounds:        %d (depth %d, learning rate %.2f)\n",
		cfg.Model.Rounds, cfg.Model.MaxDepth, cfg.Model.LearningRate)
	fmt.Println("---------------------------------------------------------")

	raw, err := dataset.Load(ctx, src)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	ds, err := dataset.Prepare(raw, features, label)
	if err != nil {
		log.Fatalf("Failed to prepare dataset: %v", err)
	}
	fmt.Printf("✓ Dataset loaded: %d rows\n", len(ds.Rows))

	bar := progressbar.Default(int64(cfg.Model.Rounds), "training")
	predictor := churn.New(churn.Config{
		LabelColumn:   label,
		PositiveLabel: cfg.Dataset.PositiveLabel,
		TestFraction:  cfg.Model.TestFraction,
		Seed:          cfg.Model.Seed,
		Boosting: boosting.Config{
			Rounds:         cfg.Model.Rounds,
			MaxDepth:       cfg.Model.MaxDepth,
			LearningRate:   cfg.Model.LearningRate,
			Lambda:         cfg.Model.Lambda,
			Gamma:          cfg.Model.Gamma,
			MinChildWeight: cfg.Model.MinChildWeight,
			Progress:       func(int) { _ = bar.Add(1) },
		},
	})

	metrics, err := predictor.Train(ctx, ds)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}
	fmt.Println()

	fmt.Printf("✓ Model trained: accuracy %.2f%% (train=%d test=%d total=%d)\n",
		metrics.Accuracy, metrics.TrainSamples, metrics.TestSamples, metrics.TotalSamples)

	printTopFeatures(predictor, 5)

	if *noSave {
		fmt.Println("Skipping save (-no-save)")
		return
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if err := predictor.SaveState(ctx, store); err != nil {
		log.Fatalf("Failed to save model state: %v", err)
	}
	fmt.Printf("✓ Model state saved to %s\n", store.Location())
}

func printTopFeatures(p *churn.Predictor, n int) {
	weights, err := p.FeatureImportance()
	if err != nil {
		return
	}

	type pair struct {
		name   string
		weight float64
	}
	pairs := make([]pair, 0, len(weights))
	for _, name := range p.FeatureNames() {
		pairs = append(pairs, pair{name, weights[name]})
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].weight > pairs[j].weight })
	if len(pairs) > n {
		pairs = pairs[:n]
	}

	fmt.Println("Top features:")
	for _, pr := range pairs {
		fmt.Printf("  %-20s %.4f\n", pr.name, pr.weight)
	}
}
