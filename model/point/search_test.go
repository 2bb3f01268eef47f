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
	"testing"

	"github.com/c-bata/goptuna"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daisy-go/pointfm/model"
)

// mockFM scores items by their parity, correctly only at the sweet spot of
// the grid.
type mockFM struct {
	model.BaseModel
	nFactors int
	lr       float32
}

func newMockFM() *mockFM {
	fm := new(mockFM)
	fm.SetParams(model.Params{})
	return fm
}

func (m *mockFM) SetParams(params model.Params) {
	m.BaseModel.SetParams(params)
	m.nFactors = params.GetInt(model.NFactors, 0)
	m.lr = params.GetFloat32(model.Lr, 0)
}

func (m *mockFM) GetParamsGrid() model.ParamsGrid {
	return model.ParamsGrid{
		model.NFactors: {4, 8, 16},
		model.Lr:       {0.01, 0.1},
	}
}

func (m *mockFM) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NFactors: lo.Must(trial.SuggestStepInt("n_factors", 4, 16, 4)),
		model.Lr:       lo.Must(trial.SuggestLogFloat("lr", 1e-3, 1e-1)),
	}
}

func (m *mockFM) Clear() {}

func (m *mockFM) Invalid() bool { return false }

func (m *mockFM) Fit(_ context.Context, _ BatchSource, _ *FitConfig) error {
	return nil
}

func (m *mockFM) atSweetSpot() bool {
	return m.nFactors == 16 && m.lr == 0.1
}

func (m *mockFM) Predict(_, items, _, _ []int32) []float32 {
	scores := make([]float32, len(items))
	for i, item := range items {
		scores[i] = float32(item % 2)
		if !m.atSweetSpot() {
			scores[i] = -scores[i]
		}
	}
	return scores
}

func paritySet(n int) *Dataset {
	dataset := NewDataset(n)
	for i := 0; i < n; i++ {
		dataset.Add(Example{User: int32(i), Item: int32(i), Label: float32(i % 2)})
	}
	return dataset
}

func TestParamsSearchResult_AddScore(t *testing.T) {
	var result ParamsSearchResult
	result.AddScore(model.Params{model.Lr: 0.1}, Score{AUC: 0.5})
	result.AddScore(model.Params{model.Lr: 0.2}, Score{AUC: 0.9})
	result.AddScore(model.Params{model.Lr: 0.3}, Score{AUC: 0.7})
	assert.Equal(t, 1, result.BestIndex)
	assert.Equal(t, float32(0.9), result.BestScore.AUC)
	assert.Equal(t, 0.2, result.BestParams[model.Lr])
	assert.Len(t, result.Scores, 3)
}

func TestGridSearchCV(t *testing.T) {
	dataset := paritySet(10)
	result := GridSearchCV(context.Background(), newMockFM(), dataset, dataset,
		model.ParamsGrid{}, 4, NewFitConfig())
	assert.Len(t, result.Scores, 6)
	assert.Equal(t, float32(1), result.BestScore.AUC)
	assert.Equal(t, 16, result.BestParams.GetInt(model.NFactors, 0))
	assert.Equal(t, float32(0.1), result.BestParams.GetFloat32(model.Lr, 0))
}

func TestRandomSearchCV(t *testing.T) {
	dataset := paritySet(10)
	// more trials than combinations falls back to the exhaustive search
	result := RandomSearchCV(context.Background(), newMockFM(), dataset, dataset,
		model.ParamsGrid{}, 10, 0, 4, NewFitConfig())
	assert.Len(t, result.Scores, 6)
	assert.Equal(t, float32(1), result.BestScore.AUC)

	result = RandomSearchCV(context.Background(), newMockFM(), dataset, dataset,
		model.ParamsGrid{}, 3, 0, 4, NewFitConfig())
	assert.Len(t, result.Scores, 3)
}

func TestModelSearch(t *testing.T) {
	// the real model on the separable set from TestFit_Convergence
	dataset := NewDataset(40)
	for user := int32(0); user < 20; user++ {
		dataset.Add(Example{User: user, Item: 1, Label: 1})
		dataset.Add(Example{User: user, Item: 0, Label: 0})
	}
	search := NewModelSearch(func() FactorizationMachine {
		return NewPointFM(20, 2, model.Params{
			model.NEpochs:     20,
			model.Feature:     -1,
			model.EarlyStop:   false,
			model.RandomState: 1,
		})
	}, dataset, dataset, 10, NewFitConfig())
	study, err := goptuna.CreateStudy("point_fm",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize))
	require.NoError(t, err)
	require.NoError(t, study.Optimize(search.Objective, 3))
	score, params := search.Best()
	assert.NotEmpty(t, params)
	assert.GreaterOrEqual(t, score.AUC, float32(0))
	value, err := study.GetBestValue()
	require.NoError(t, err)
	assert.InDelta(t, float64(score.AUC), value, 1e-6)
}
