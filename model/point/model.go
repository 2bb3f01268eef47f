// Copyright 2025 daisy-go Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package point

import (
	"context"

	"github.com/c-bata/goptuna"
	"go.uber.org/zap"

	"github.com/daisy-go/pointfm/model"
)

// Score records the evaluation of a fitted model on a test set.
type Score struct {
	RMSE      float32
	Precision float32
	Recall    float32
	Accuracy  float32
	AUC       float32
}

func (score Score) ZapFields() []zap.Field {
	return []zap.Field{
		zap.Float32("RMSE", score.RMSE),
		zap.Float32("Precision", score.Precision),
		zap.Float32("Recall", score.Recall),
		zap.Float32("Accuracy", score.Accuracy),
		zap.Float32("AUC", score.AUC),
	}
}

func (score Score) GetValue() float32 {
	return score.AUC
}

func (score Score) BetterThan(s Score) bool {
	return score.AUC > s.AUC
}

// FitConfig tunes the behavior of a fit run without affecting the result.
type FitConfig struct {
	Verbose      int
	ShowProgress bool
}

func NewFitConfig() *FitConfig {
	return &FitConfig{Verbose: 10}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetShowProgress(showProgress bool) *FitConfig {
	config.ShowProgress = showProgress
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// FactorizationMachine is the interface of point-wise recommenders.
type FactorizationMachine interface {
	model.Model
	// Fit trains the model on the train set.
	Fit(ctx context.Context, trainSet BatchSource, config *FitConfig) error
	// Predict returns the raw scores for user-item pairs.
	Predict(users, items, genders, ages []int32) []float32
	// SuggestParams draws hyper-parameters from a goptuna trial.
	SuggestParams(trial goptuna.Trial) model.Params
	// Invalid reports whether the model has been cleared.
	Invalid() bool
}
