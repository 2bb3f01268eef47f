package nn

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestAdd(t *testing.T) {
	x := NewTensor([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	w := NewTensor([]float32{10, 20, 30}, 3)
	y := Add(x, w)
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, y.Data())
	Sum(y).Backward()
	assert.Equal(t, []float32{1, 1, 1, 1, 1, 1}, x.Grad().Data())
	assert.Equal(t, []float32{2, 2, 2}, w.Grad().Data())
}

func TestSub(t *testing.T) {
	x := NewTensor([]float32{1, 2, 3, 4}, 4)
	w := NewTensor([]float32{1, 1, 1, 1}, 4)
	y := Sub(x, w)
	assert.Equal(t, []float32{0, 1, 2, 3}, y.Data())
	Sum(y).Backward()
	assert.Equal(t, []float32{1, 1, 1, 1}, x.Grad().Data())
	assert.Equal(t, []float32{-1, -1, -1, -1}, w.Grad().Data())
}

func TestMul(t *testing.T) {
	x := NewTensor([]float32{1, 2, 3, 4}, 2, 2)
	w := NewTensor([]float32{2, 3}, 2)
	y := Mul(x, w)
	assert.Equal(t, []float32{2, 6, 6, 12}, y.Data())
	Sum(y).Backward()
	assert.Equal(t, []float32{2, 3, 2, 3}, x.Grad().Data())
	assert.Equal(t, []float32{4, 6}, w.Grad().Data())
}

func TestSquare(t *testing.T) {
	x := NewTensor([]float32{1, -2, 3}, 3)
	y := Square(x)
	assert.Equal(t, []float32{1, 4, 9}, y.Data())
	Sum(y).Backward()
	assert.Equal(t, []float32{2, -4, 6}, x.Grad().Data())
}

func TestFlatten(t *testing.T) {
	x := NewTensor([]float32{1, 2, 3, 4}, 2, 2)
	y := Flatten(x)
	assert.Equal(t, []int{4}, y.Shape())
	Sum(y).Backward()
	assert.Equal(t, []int{2, 2}, x.Grad().Shape())
}

func TestSigmoid(t *testing.T) {
	x := NewTensor([]float32{0, 1, -1}, 3)
	y := Sigmoid(x)
	assert.InDelta(t, 0.5, y.Data()[0], 1e-6)
	assert.InDelta(t, 1/(1+math32.Exp(-1)), y.Data()[1], 1e-6)
	Sum(y).Backward()
	assert.InDelta(t, 0.25, x.Grad().Data()[0], 1e-6)
}

func TestMatMul(t *testing.T) {
	x := NewTensor([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	w := NewTensor([]float32{1, 0, 0, 1, 1, 1}, 3, 2)
	y := MatMul(x, w)
	assert.Equal(t, []int{2, 2}, y.Shape())
	assert.Equal(t, []float32{4, 5, 10, 11}, y.Data())
	Sum(y).Backward()
	assert.Equal(t, []float32{1, 1, 2, 1, 1, 2}, x.Grad().Data())
	assert.Equal(t, []float32{5, 5, 7, 7, 9, 9}, w.Grad().Data())
}

func TestEmbedding(t *testing.T) {
	w := NewTensor([]float32{
		0, 0,
		1, 10,
		2, 20,
	}, 3, 2)
	x := NewTensor([]float32{2, 0, 2}, 3)
	y := Embedding(w, x)
	assert.Equal(t, []int{3, 2}, y.Shape())
	assert.Equal(t, []float32{2, 20, 0, 0, 2, 20}, y.Data())
	Sum(y).Backward()
	// row 2 was gathered twice, so its gradient accumulates
	assert.Equal(t, []float32{1, 1, 0, 0, 2, 2}, w.Grad().Data())
}

func TestBatchDot(t *testing.T) {
	a := NewTensor([]float32{1, 2, 3, 4}, 2, 2)
	b := NewTensor([]float32{5, 6, 7, 8}, 2, 2)
	y := BatchDot(a, b)
	assert.Equal(t, []int{2}, y.Shape())
	assert.Equal(t, []float32{17, 53}, y.Data())
	Sum(y).Backward()
	assert.Equal(t, []float32{5, 6, 7, 8}, a.Grad().Data())
	assert.Equal(t, []float32{1, 2, 3, 4}, b.Grad().Data())
}

func TestL1Norm(t *testing.T) {
	x := NewTensor([]float32{1, -2, 0, 3}, 4)
	y := L1Norm(x)
	assert.Equal(t, float32(6), y.Data()[0])
	y.Backward()
	assert.Equal(t, []float32{1, -1, 0, 1}, x.Grad().Data())
}

func TestL2Norm(t *testing.T) {
	x := NewTensor([]float32{3, 4}, 2)
	y := L2Norm(x)
	assert.InDelta(t, 5, y.Data()[0], 1e-6)
	y.Backward()
	assert.InDelta(t, 0.6, x.Grad().Data()[0], 1e-6)
	assert.InDelta(t, 0.8, x.Grad().Data()[1], 1e-6)

	zero := Zeros(2)
	n := L2Norm(zero)
	n.Backward()
	assert.Equal(t, []float32{0, 0}, zero.Grad().Data())
}

func TestBCEWithLogits(t *testing.T) {
	prediction := NewTensor([]float32{0, 2, -2}, 3)
	target := NewTensor([]float32{1, 1, 0}, 3)
	y := BCEWithLogits(prediction, target)
	var expected float32
	for i, x := range []float32{0, 2, -2} {
		tt := target.Data()[i]
		expected += -tt*math32.Log(1/(1+math32.Exp(-x))) - (1-tt)*math32.Log(1-1/(1+math32.Exp(-x)))
	}
	assert.InDelta(t, expected, y.Data()[0], 1e-5)
	y.Backward()
	for i, x := range []float32{0, 2, -2} {
		tt := target.Data()[i]
		assert.InDelta(t, 1/(1+math32.Exp(-x))-tt, prediction.Grad().Data()[i], 1e-5)
	}
}

func TestSumSquaredError(t *testing.T) {
	prediction := NewTensor([]float32{1, 2}, 2)
	target := NewTensor([]float32{0, 4}, 2)
	y := SumSquaredError(prediction, target)
	assert.Equal(t, float32(5), y.Data()[0])
	y.Backward()
	assert.Equal(t, []float32{2, -4}, prediction.Grad().Data())
}
