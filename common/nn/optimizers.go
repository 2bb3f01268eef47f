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

import "github.com/chewxy/math32"

type Optimizer interface {
	SetWeightDecay(weightDecay float32)
	ZeroGrad()
	Step()
}

type baseOptimizer struct {
	params      []*Tensor
	weightDecay float32
}

func (o *baseOptimizer) SetWeightDecay(weightDecay float32) {
	o.weightDecay = weightDecay
}

func (o *baseOptimizer) ZeroGrad() {
	for _, p := range o.params {
		p.grad = nil
	}
}

type SGD struct {
	baseOptimizer
	lr float32
}

func NewSGD(params []*Tensor, lr float32) Optimizer {
	return &SGD{
		baseOptimizer: baseOptimizer{params: params},
		lr:            lr,
	}
}

func (s *SGD) Step() {
	for _, p := range s.params {
		if p.grad == nil {
			continue
		}
		for i := range p.data {
			p.data[i] -= s.lr * (p.grad.data[i] + s.weightDecay*p.data[i])
		}
	}
}

type Adam struct {
	baseOptimizer
	alpha float32
	beta1 float32
	beta2 float32
	eps   float32
	t     int
	ms    map[*Tensor]*Tensor
	vs    map[*Tensor]*Tensor
}

func NewAdam(params []*Tensor, alpha float32) Optimizer {
	return &Adam{
		baseOptimizer: baseOptimizer{params: params},
		alpha:         alpha,
		beta1:         0.9,
		beta2:         0.999,
		eps:           1e-8,
		ms:            make(map[*Tensor]*Tensor),
		vs:            make(map[*Tensor]*Tensor),
	}
}

func (a *Adam) Step() {
	a.t++
	correction1 := 1 - math32.Pow(a.beta1, float32(a.t))
	correction2 := 1 - math32.Pow(a.beta2, float32(a.t))
	for _, p := range a.params {
		if p.grad == nil {
			continue
		}
		m, ok := a.ms[p]
		if !ok {
			m = Zeros(p.shape...)
			a.ms[p] = m
		}
		v, ok := a.vs[p]
		if !ok {
			v = Zeros(p.shape...)
			a.vs[p] = v
		}
		for i := range p.data {
			grad := p.grad.data[i] + a.weightDecay*p.data[i]
			m.data[i] = a.beta1*m.data[i] + (1-a.beta1)*grad
			v.data[i] = a.beta2*v.data[i] + (1-a.beta2)*grad*grad
			mHat := m.data[i] / correction1
			vHat := v.data[i] / correction2
			p.data[i] -= a.alpha * mHat / (math32.Sqrt(vHat) + a.eps)
		}
	}
}
