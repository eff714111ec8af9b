// Package churn implements the customer churn prediction pipeline.
//
// A Predictor ties together the categorical encoder registry, the
// gradient boosted classifier and the training metrics. Training builds
// a complete new model state and installs it with one atomic swap, so
// concurrent predictions always see either the previous model or the
// new one, never a mix.
//
// Persistence goes through the StateStore interface; implementations
// live in internal/storage.
package churn
