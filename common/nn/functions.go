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

package nn

// BCEWithLogits returns the sum-reduced binary cross entropy between raw
// scores and binary targets. The sigmoid is fused into the loss for numerical
// stability.
func BCEWithLogits(prediction, target *Tensor) *Tensor {
	return apply(&bceWithLogits{}, prediction, target)
}

// SumSquaredError returns the sum-reduced squared error between predictions
// and targets.
func SumSquaredError(prediction, target *Tensor) *Tensor {
	return Sum(Square(Sub(prediction, target)))
}
