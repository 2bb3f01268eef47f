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

import (
	"fmt"

	"github.com/chewxy/math32"
)

type op interface {
	String() string
	forward(inputs ...*Tensor) *Tensor
	backward(dy *Tensor) []*Tensor
	inputsAndOutput() ([]*Tensor, *Tensor)
	setInputs(inputs ...*Tensor)
	setOutput(y *Tensor)
}

type base struct {
	inputs []*Tensor
	output *Tensor
}

func (b *base) inputsAndOutput() ([]*Tensor, *Tensor) {
	return b.inputs, b.output
}

func (b *base) setInputs(inputs ...*Tensor) {
	b.inputs = inputs
}

func (b *base) setOutput(y *Tensor) {
	b.output = y
}

func apply[T op](f T, inputs ...*Tensor) *Tensor {
	y := f.forward(inputs...)
	f.setInputs(inputs...)
	f.setOutput(y)
	y.op = f
	return y
}

type add struct {
	base
}

func (a *add) String() string {
	return "Add"
}

func (a *add) forward(inputs ...*Tensor) *Tensor {
	y := inputs[0].clone()
	y.add(inputs[1])
	return y
}

func (a *add) backward(dy *Tensor) []*Tensor {
	gx0 := dy.clone()
	gx1 := Zeros(a.inputs[1].shape...)
	wSize := len(gx1.data)
	for i := range dy.data {
		gx1.data[i%wSize] += dy.data[i]
	}
	return []*Tensor{gx0, gx1}
}

type sub struct {
	base
}

func (s *sub) String() string {
	return "Sub"
}

func (s *sub) forward(inputs ...*Tensor) *Tensor {
	y := inputs[0].clone()
	y.sub(inputs[1])
	return y
}

func (s *sub) backward(dy *Tensor) []*Tensor {
	gx0 := dy.clone()
	gx1 := Zeros(s.inputs[1].shape...)
	wSize := len(gx1.data)
	for i := range dy.data {
		gx1.data[i%wSize] -= dy.data[i]
	}
	return []*Tensor{gx0, gx1}
}

type mul struct {
	base
}

func (m *mul) String() string {
	return "Mul"
}

func (m *mul) forward(inputs ...*Tensor) *Tensor {
	y := inputs[0].clone()
	y.mul(inputs[1])
	return y
}

func (m *mul) backward(dy *Tensor) []*Tensor {
	gx0 := dy.clone()
	gx0.mul(m.inputs[1])
	gx1 := Zeros(m.inputs[1].shape...)
	wSize := len(gx1.data)
	for i := range dy.data {
		gx1.data[i%wSize] += dy.data[i] * m.inputs[0].data[i]
	}
	return []*Tensor{gx0, gx1}
}

type square struct {
	base
}

func (s *square) String() string {
	return "Square"
}

func (s *square) forward(inputs ...*Tensor) *Tensor {
	y := inputs[0].clone()
	y.square()
	return y
}

func (s *square) backward(dy *Tensor) []*Tensor {
	gx := dy.clone()
	for i := range gx.data {
		gx.data[i] *= 2 * s.inputs[0].data[i]
	}
	return []*Tensor{gx}
}

type sum struct {
	base
}

func (s *sum) String() string {
	return "Sum"
}

func (s *sum) forward(inputs ...*Tensor) *Tensor {
	x := inputs[0]
	y := NewScalar(0)
	for i := range x.data {
		y.data[0] += x.data[i]
	}
	return y
}

func (s *sum) backward(dy *Tensor) []*Tensor {
	gx := Zeros(s.inputs[0].shape...)
	for i := range gx.data {
		gx.data[i] = dy.data[0]
	}
	return []*Tensor{gx}
}

type flatten struct {
	base
}

func (f *flatten) String() string {
	return "Flatten"
}

func (f *flatten) forward(inputs ...*Tensor) *Tensor {
	y := inputs[0].clone()
	y.shape = []int{len(y.data)}
	return y
}

func (f *flatten) backward(dy *Tensor) []*Tensor {
	gx := dy.clone()
	gx.shape = f.inputs[0].shape
	return []*Tensor{gx}
}

type sigmoid struct {
	base
}

func (s *sigmoid) String() string {
	return "Sigmoid"
}

func (s *sigmoid) forward(inputs ...*Tensor) *Tensor {
	// y = tanh(x * 0.5) * 0.5 + 0.5
	y := inputs[0].clone()
	for i := range y.data {
		y.data[i] = math32.Tanh(y.data[i]*0.5)*0.5 + 0.5
	}
	return y
}

func (s *sigmoid) backward(dy *Tensor) []*Tensor {
	gx := dy.clone()
	for i := range gx.data {
		y := s.output.data[i]
		gx.data[i] *= y * (1 - y)
	}
	return []*Tensor{gx}
}

type matMul struct {
	base
	transpose1 bool
	transpose2 bool
}

func (m *matMul) String() string {
	return "MatMul"
}

func (m *matMul) forward(inputs ...*Tensor) *Tensor {
	return inputs[0].matMul(inputs[1], m.transpose1, m.transpose2)
}

func (m *matMul) backward(dy *Tensor) []*Tensor {
	var gx0, gx1 *Tensor
	if !m.transpose1 {
		gx0 = dy.matMul(m.inputs[1], false, !m.transpose2)
	} else {
		gx0 = m.inputs[1].matMul(dy, m.transpose2, true)
	}
	if !m.transpose2 {
		gx1 = m.inputs[0].matMul(dy, !m.transpose1, false)
	} else {
		gx1 = dy.matMul(m.inputs[0], true, m.transpose1)
	}
	return []*Tensor{gx0, gx1}
}

type embedding struct {
	base
}

func (e *embedding) String() string {
	return "Embedding"
}

func (e *embedding) forward(inputs ...*Tensor) *Tensor {
	w, x := inputs[0], inputs[1]
	dim := 1
	for _, s := range w.shape[1:] {
		dim *= s
	}
	shape := make([]int, 0, len(x.shape)+len(w.shape)-1)
	shape = append(shape, x.shape...)
	shape = append(shape, w.shape[1:]...)
	data := make([]float32, len(x.data)*dim)
	for i := range x.data {
		index := int(x.data[i])
		copy(data[i*dim:(i+1)*dim], w.data[index*dim:(index+1)*dim])
	}
	return NewTensor(data, shape...)
}

func (e *embedding) backward(dy *Tensor) []*Tensor {
	w, x := e.inputs[0], e.inputs[1]
	dim := 1
	for _, s := range w.shape[1:] {
		dim *= s
	}
	gw := Zeros(w.shape...)
	for i := range x.data {
		index := int(x.data[i])
		for j := 0; j < dim; j++ {
			gw.data[index*dim+j] += dy.data[i*dim+j]
		}
	}
	return []*Tensor{gw, Zeros(x.shape...)}
}

type batchDot struct {
	base
}

func (b *batchDot) String() string {
	return "BatchDot"
}

func (b *batchDot) forward(inputs ...*Tensor) *Tensor {
	x0, x1 := inputs[0], inputs[1]
	n, k := x0.shape[0], x0.shape[1]
	y := Zeros(n)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			y.data[i] += x0.data[i*k+j] * x1.data[i*k+j]
		}
	}
	return y
}

func (b *batchDot) backward(dy *Tensor) []*Tensor {
	x0, x1 := b.inputs[0], b.inputs[1]
	n, k := x0.shape[0], x0.shape[1]
	gx0 := Zeros(x0.shape...)
	gx1 := Zeros(x1.shape...)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			gx0.data[i*k+j] = dy.data[i] * x1.data[i*k+j]
			gx1.data[i*k+j] = dy.data[i] * x0.data[i*k+j]
		}
	}
	return []*Tensor{gx0, gx1}
}

type l1 struct {
	base
}

func (l *l1) String() string {
	return "L1"
}

func (l *l1) forward(inputs ...*Tensor) *Tensor {
	y := NewScalar(0)
	for _, v := range inputs[0].data {
		y.data[0] += math32.Abs(v)
	}
	return y
}

func (l *l1) backward(dy *Tensor) []*Tensor {
	x := l.inputs[0]
	gx := Zeros(x.shape...)
	for i, v := range x.data {
		if v > 0 {
			gx.data[i] = dy.data[0]
		} else if v < 0 {
			gx.data[i] = -dy.data[0]
		}
	}
	return []*Tensor{gx}
}

type l2 struct {
	base
}

func (l *l2) String() string {
	return "L2"
}

func (l *l2) forward(inputs ...*Tensor) *Tensor {
	var sum float32
	for _, v := range inputs[0].data {
		sum += v * v
	}
	return NewScalar(math32.Sqrt(sum))
}

func (l *l2) backward(dy *Tensor) []*Tensor {
	x := l.inputs[0]
	gx := Zeros(x.shape...)
	norm := l.output.data[0]
	if norm > 0 {
		for i, v := range x.data {
			gx.data[i] = v / norm * dy.data[0]
		}
	}
	return []*Tensor{gx}
}

type bceWithLogits struct {
	base
}

func (b *bceWithLogits) String() string {
	return "BCEWithLogits"
}

func (b *bceWithLogits) forward(inputs ...*Tensor) *Tensor {
	// max(x,0) - x*t + log(1+exp(-|x|)), numerically stable, summed.
	prediction, target := inputs[0], inputs[1]
	y := NewScalar(0)
	for i := range prediction.data {
		x, t := prediction.data[i], target.data[i]
		y.data[0] += math32.Max(x, 0) - x*t + math32.Log1p(math32.Exp(-math32.Abs(x)))
	}
	return y
}

func (b *bceWithLogits) backward(dy *Tensor) []*Tensor {
	prediction, target := b.inputs[0], b.inputs[1]
	gp := Zeros(prediction.shape...)
	gt := Zeros(target.shape...)
	for i := range prediction.data {
		x, t := prediction.data[i], target.data[i]
		gp.data[i] = (math32.Tanh(x*0.5)*0.5 + 0.5 - t) * dy.data[0]
		gt.data[i] = -x * dy.data[0]
	}
	return []*Tensor{gp, gt}
}

// Add returns the element-wise sum of two tensors. The shape of the second
// tensor must be the suffix of the shape of the first tensor.
func Add(x0, x1 *Tensor) *Tensor {
	if len(x0.shape) < len(x1.shape) {
		panic("the shape of the second tensor must be the suffix of the shape of the first tensor")
	}
	for i := 0; i < len(x1.shape); i++ {
		if x0.shape[len(x0.shape)-len(x1.shape)+i] != x1.shape[i] {
			panic("the shape of the second tensor must be the suffix of the shape of the first tensor")
		}
	}
	return apply(&add{}, x0, x1)
}

// Sub returns the element-wise difference of two tensors. The shape of the
// second tensor must be the suffix of the shape of the first tensor.
func Sub(x0, x1 *Tensor) *Tensor {
	if len(x0.shape) < len(x1.shape) {
		panic("the shape of the second tensor must be the suffix of the shape of the first tensor")
	}
	for i := 0; i < len(x1.shape); i++ {
		if x0.shape[len(x0.shape)-len(x1.shape)+i] != x1.shape[i] {
			panic("the shape of the second tensor must be the suffix of the shape of the first tensor")
		}
	}
	return apply(&sub{}, x0, x1)
}

// Mul returns the element-wise product of two tensors. The shape of the second
// tensor must be the suffix of the shape of the first tensor.
func Mul(x0, x1 *Tensor) *Tensor {
	if len(x0.shape) < len(x1.shape) {
		panic("the shape of the second tensor must be the suffix of the shape of the first tensor")
	}
	for i := 0; i < len(x1.shape); i++ {
		if x0.shape[len(x0.shape)-len(x1.shape)+i] != x1.shape[i] {
			panic("the shape of the second tensor must be the suffix of the shape of the first tensor")
		}
	}
	return apply(&mul{}, x0, x1)
}

// Square returns the element-wise square of a tensor.
func Square(x *Tensor) *Tensor {
	return apply(&square{}, x)
}

// Sum returns the sum of all elements as a scalar tensor.
func Sum(x *Tensor) *Tensor {
	return apply(&sum{}, x)
}

// Flatten returns a 1-D view of a tensor.
func Flatten(x *Tensor) *Tensor {
	return apply(&flatten{}, x)
}

// Sigmoid returns the element-wise logistic function of a tensor.
func Sigmoid(x *Tensor) *Tensor {
	return apply(&sigmoid{}, x)
}

// MatMul returns the matrix product of two 2-D tensors.
func MatMul(x0, x1 *Tensor, transpose ...bool) *Tensor {
	op := &matMul{}
	if len(transpose) > 0 {
		op.transpose1 = transpose[0]
	}
	if len(transpose) > 1 {
		op.transpose2 = transpose[1]
	}
	return apply(op, x0, x1)
}

// Embedding returns rows of w gathered by the indices in x. The shape of the
// result is the shape of x followed by the row shape of w.
func Embedding(w, x *Tensor) *Tensor {
	return apply(&embedding{}, w, x)
}

// BatchDot returns the row-wise dot product of two [n, k] tensors as an [n]
// tensor.
func BatchDot(x0, x1 *Tensor) *Tensor {
	if len(x0.shape) != 2 || len(x1.shape) != 2 {
		panic("BatchDot requires 2-D tensors")
	}
	if x0.shape[0] != x1.shape[0] || x0.shape[1] != x1.shape[1] {
		panic(fmt.Sprintf("BatchDot shape mismatch: %v and %v", x0.shape, x1.shape))
	}
	return apply(&batchDot{}, x0, x1)
}

// L1Norm returns the sum of absolute values of a tensor as a scalar.
func L1Norm(x *Tensor) *Tensor {
	return apply(&l1{}, x)
}

// L2Norm returns the Euclidean norm of a tensor as a scalar.
func L2Norm(x *Tensor) *Tensor {
	return apply(&l2{}, x)
}
