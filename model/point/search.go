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
	"sort"
	"sync"

	"github.com/c-bata/goptuna"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/daisy-go/pointfm/base"
	"github.com/daisy-go/pointfm/base/log"
	"github.com/daisy-go/pointfm/base/progress"
	"github.com/daisy-go/pointfm/model"
)

// ParamsSearchResult records all scores of a hyper-parameter search.
type ParamsSearchResult struct {
	BestScore  Score
	BestParams model.Params
	BestIndex  int
	Scores     []Score
	Params     []model.Params
}

func (r *ParamsSearchResult) AddScore(params model.Params, score Score) {
	if len(r.Scores) == 0 || score.BetterThan(r.BestScore) {
		r.BestScore = score
		r.BestParams = params.Copy()
		r.BestIndex = len(r.Scores)
	}
	r.Scores = append(r.Scores, score)
	r.Params = append(r.Params, params.Copy())
}

// GridSearchCV exhaustively searches the parameter grid. The grid is filled
// with the estimator's default candidates for missing parameters. Trials that
// fail to fit are logged and skipped.
func GridSearchCV(ctx context.Context, estimator FactorizationMachine, trainSet, testSet *Dataset,
	paramGrid model.ParamsGrid, batchSize int, config *FitConfig) ParamsSearchResult {
	paramGrid.Fill(estimator.GetParamsGrid())
	paramNames := make([]model.ParamName, 0, len(paramGrid))
	for name := range paramGrid {
		paramNames = append(paramNames, name)
	}
	sort.Slice(paramNames, func(i, j int) bool { return paramNames[i] < paramNames[j] })
	ctx, span := progress.Start(ctx, "GridSearchCV", paramGrid.NumCombinations())
	var results ParamsSearchResult
	var dfs func(deep int, params model.Params)
	dfs = func(deep int, params model.Params) {
		if deep == len(paramNames) {
			estimator.SetParams(estimator.GetParams().Overwrite(params))
			estimator.Clear()
			if err := estimator.Fit(ctx, trainSet.Batches(batchSize), config); err != nil {
				log.Logger().Error("failed to fit a trial",
					zap.String("params", params.ToString()),
					zap.Error(err))
			} else {
				results.AddScore(params, EvaluateClassification(estimator, testSet))
			}
			span.Add(1)
			return
		}
		name := paramNames[deep]
		for _, value := range paramGrid[name] {
			params[name] = value
			dfs(deep+1, params)
		}
	}
	dfs(0, make(model.Params))
	span.End()
	return results
}

// RandomSearchCV draws numTrials random combinations from the parameter grid.
// If the grid holds fewer combinations than numTrials, the search falls back
// to an exhaustive grid search.
func RandomSearchCV(ctx context.Context, estimator FactorizationMachine, trainSet, testSet *Dataset,
	paramGrid model.ParamsGrid, numTrials int, seed int64, batchSize int, config *FitConfig) ParamsSearchResult {
	paramGrid.Fill(estimator.GetParamsGrid())
	if paramGrid.NumCombinations() <= numTrials {
		return GridSearchCV(ctx, estimator, trainSet, testSet, paramGrid, batchSize, config)
	}
	rng := base.NewRandomGenerator(seed)
	ctx, span := progress.Start(ctx, "RandomSearchCV", numTrials)
	var results ParamsSearchResult
	for i := 0; i < numTrials; i++ {
		params := make(model.Params)
		for name, values := range paramGrid {
			params[name] = values[rng.Intn(len(values))]
		}
		estimator.SetParams(estimator.GetParams().Overwrite(params))
		estimator.Clear()
		if err := estimator.Fit(ctx, trainSet.Batches(batchSize), config); err != nil {
			log.Logger().Error("failed to fit a trial",
				zap.String("params", params.ToString()),
				zap.Error(err))
		} else {
			results.AddScore(params, EvaluateClassification(estimator, testSet))
		}
		span.Add(1)
	}
	span.End()
	return results
}

// ModelSearch is a goptuna objective over the hyper-parameters suggested by
// the model itself.
type ModelSearch struct {
	newModel  func() FactorizationMachine
	trainSet  *Dataset
	testSet   *Dataset
	batchSize int
	config    *FitConfig

	mu         sync.Mutex
	bestScore  Score
	bestParams model.Params
	numTrials  int
}

func NewModelSearch(newModel func() FactorizationMachine, trainSet, testSet *Dataset,
	batchSize int, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		newModel:  newModel,
		trainSet:  trainSet,
		testSet:   testSet,
		batchSize: batchSize,
		config:    config,
	}
}

// Objective fits one trial and returns its AUC.
func (s *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	fm := s.newModel()
	params := fm.SuggestParams(trial)
	fm.SetParams(fm.GetParams().Overwrite(params))
	fm.Clear()
	if err := fm.Fit(context.Background(), s.trainSet.Batches(s.batchSize), s.config); err != nil {
		return 0, errors.Trace(err)
	}
	score := EvaluateClassification(fm, s.testSet)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.numTrials == 0 || score.BetterThan(s.bestScore) {
		s.bestScore = score
		s.bestParams = params.Copy()
	}
	s.numTrials++
	return float64(score.AUC), nil
}

// Best returns the best score and parameters seen so far.
func (s *ModelSearch) Best() (Score, model.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bestScore, s.bestParams
}
