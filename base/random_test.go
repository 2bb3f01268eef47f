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

package base

import (
	"testing"

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
)

const randomEpsilon = 0.1

func TestRandomGenerator_Deterministic(t *testing.T) {
	a := NewRandomGenerator(42)
	b := NewRandomGenerator(42)
	assert.Equal(t, a.NormalVector(100, 0, 1), b.NormalVector(100, 0, 1))
	assert.Equal(t, a.UniformVector(100, -1, 1), b.UniformVector(100, -1, 1))
}

func TestNormalVector(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.NormalVector(10000, 1, 2)
	assert.InDelta(t, 1, mean(vec), randomEpsilon)
	assert.InDelta(t, 2, stdDev(vec), randomEpsilon)
}

func TestNormalMatrix(t *testing.T) {
	rng := NewRandomGenerator(0)
	mat := rng.NormalMatrix(100, 100, 1, 2)
	flat := make([]float32, 0, 10000)
	for _, row := range mat {
		flat = append(flat, row...)
	}
	assert.InDelta(t, 1, mean(flat), randomEpsilon)
	assert.InDelta(t, 2, stdDev(flat), randomEpsilon)
}

func TestSampleInt32(t *testing.T) {
	rng := NewRandomGenerator(0)
	exclude := mapset.NewSet[int32](0, 1, 2, 3, 4)
	sampled := rng.SampleInt32(0, 100, 10, exclude)
	assert.Len(t, sampled, 10)
	for _, v := range sampled {
		assert.False(t, exclude.Contains(v))
	}
	// sampling more than available returns the whole remainder
	sampled = rng.SampleInt32(0, 8, 10, exclude)
	assert.ElementsMatch(t, []int32{5, 6, 7}, sampled)
}

func mean(vec []float32) float32 {
	var sum float32
	for _, v := range vec {
		sum += v
	}
	return sum / float32(len(vec))
}

func stdDev(vec []float32) float32 {
	m := mean(vec)
	var sum float32
	for _, v := range vec {
		sum += (v - m) * (v - m)
	}
	return math32.Sqrt(sum / float32(len(vec)))
}
