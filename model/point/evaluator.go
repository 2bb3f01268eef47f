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
	"io"
	"sort"

	"github.com/chewxy/math32"
	"modernc.org/sortutil"
)

const evalBatchSize = 1024

// EvaluateClassification evaluates a fitted model on a binary labeled test
// set. Scores above zero count as positive predictions.
func EvaluateClassification(fm FactorizationMachine, testSet *Dataset) Score {
	prediction, target := collect(fm, testSet)
	posPrediction := make([]float32, 0, len(prediction))
	negPrediction := make([]float32, 0, len(prediction))
	for i := range prediction {
		if target[i] > 0 {
			posPrediction = append(posPrediction, prediction[i])
		} else {
			negPrediction = append(negPrediction, prediction[i])
		}
	}
	return Score{
		Precision: Precision(prediction, target),
		Recall:    Recall(prediction, target),
		Accuracy:  Accuracy(prediction, target),
		AUC:       AUC(posPrediction, negPrediction),
	}
}

// EvaluateRegression evaluates a fitted model on a real labeled test set.
func EvaluateRegression(fm FactorizationMachine, testSet *Dataset) Score {
	prediction, target := collect(fm, testSet)
	return Score{RMSE: RMSE(prediction, target)}
}

func collect(fm FactorizationMachine, testSet *Dataset) (prediction, target []float32) {
	source := testSet.Batches(evalBatchSize)
	for {
		batch, err := source.Next()
		if err == io.EOF {
			break
		}
		prediction = append(prediction, fm.Predict(batch.Users, batch.Items, batch.Genders, batch.Ages)...)
		target = append(target, batch.Labels...)
	}
	return
}

// Precision is the fraction of positive predictions that are correct.
func Precision(prediction, target []float32) float32 {
	var tp, fp float32
	for i := range prediction {
		if prediction[i] > 0 {
			if target[i] > 0 {
				tp++
			} else {
				fp++
			}
		}
	}
	if tp+fp == 0 {
		return 0
	}
	return tp / (tp + fp)
}

// Recall is the fraction of positive examples that are found.
func Recall(prediction, target []float32) float32 {
	var tp, fn float32
	for i := range prediction {
		if target[i] > 0 {
			if prediction[i] > 0 {
				tp++
			} else {
				fn++
			}
		}
	}
	if tp+fn == 0 {
		return 0
	}
	return tp / (tp + fn)
}

// Accuracy is the fraction of correct predictions.
func Accuracy(prediction, target []float32) float32 {
	if len(prediction) == 0 {
		return 0
	}
	var correct float32
	for i := range prediction {
		if (prediction[i] > 0) == (target[i] > 0) {
			correct++
		}
	}
	return correct / float32(len(prediction))
}

// AUC is the probability that a random positive example scores higher than a
// random negative example. Ties count half.
func AUC(posPrediction, negPrediction []float32) float32 {
	if len(posPrediction) == 0 || len(negPrediction) == 0 {
		return 0
	}
	sorted := make([]float32, len(negPrediction))
	copy(sorted, negPrediction)
	sort.Sort(sortutil.Float32Slice(sorted))
	var sum float32
	for _, pos := range posPrediction {
		below := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= pos })
		equal := sort.Search(len(sorted), func(i int) bool { return sorted[i] > pos })
		sum += float32(below) + float32(equal-below)/2
	}
	return sum / float32(len(posPrediction)) / float32(len(negPrediction))
}

// RMSE is the root mean squared error between predictions and targets.
func RMSE(prediction, target []float32) float32 {
	if len(prediction) == 0 {
		return 0
	}
	var sum float32
	for i := range prediction {
		diff := prediction[i] - target[i]
		sum += diff * diff
	}
	return math32.Sqrt(sum / float32(len(prediction)))
}
