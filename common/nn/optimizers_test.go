package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fit y = 2x + 3 with a single weight and bias
func linearRegression(optimizer Optimizer, w, b *Tensor, epochs int) []float32 {
	x := NewTensor([]float32{0, 1, 2, 3, 4, 5, 6, 7}, 8, 1)
	y := NewTensor([]float32{3, 5, 7, 9, 11, 13, 15, 17}, 8, 1)
	losses := make([]float32, 0, epochs)
	for epoch := 0; epoch < epochs; epoch++ {
		optimizer.ZeroGrad()
		prediction := Add(Mul(x, w), b)
		loss := SumSquaredError(prediction, y)
		loss.Backward()
		optimizer.Step()
		losses = append(losses, loss.Data()[0])
	}
	return losses
}

func TestSGD(t *testing.T) {
	w := Zeros(1).RequireGrad()
	b := Zeros(1).RequireGrad()
	losses := linearRegression(NewSGD([]*Tensor{w, b}, 0.001), w, b, 500)
	assert.IsDecreasing(t, losses)
	assert.InDelta(t, 2, w.Data()[0], 0.1)
	assert.InDelta(t, 3, b.Data()[0], 0.5)
}

func TestAdam(t *testing.T) {
	w := Zeros(1).RequireGrad()
	b := Zeros(1).RequireGrad()
	losses := linearRegression(NewAdam([]*Tensor{w, b}, 0.1), w, b, 500)
	assert.Less(t, losses[len(losses)-1], losses[0])
	assert.InDelta(t, 2, w.Data()[0], 0.1)
	assert.InDelta(t, 3, b.Data()[0], 0.5)
}
