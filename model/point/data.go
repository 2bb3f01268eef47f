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

	mapset "github.com/deckarep/golang-set/v2"
	"modernc.org/mathutil"

	"github.com/daisy-go/pointfm/base"
)

// Example is a single labeled interaction.
type Example struct {
	User   int32
	Item   int32
	Gender int32
	Age    int32
	Label  float32
}

// Batch is a column-oriented slice of examples.
type Batch struct {
	Users   []int32
	Items   []int32
	Genders []int32
	Ages    []int32
	Labels  []float32
}

func (b *Batch) Len() int {
	return len(b.Users)
}

// BatchSource iterates over training batches. Next returns io.EOF once the
// source is exhausted and Reset rewinds it for the next epoch.
type BatchSource interface {
	Reset()
	Next() (*Batch, error)
}

// Dataset is an in-memory collection of examples.
type Dataset struct {
	examples []Example
}

func NewDataset(capacity int) *Dataset {
	return &Dataset{examples: make([]Example, 0, capacity)}
}

func (d *Dataset) Add(example Example) {
	d.examples = append(d.examples, example)
}

func (d *Dataset) Count() int {
	return len(d.examples)
}

func (d *Dataset) Get(i int) Example {
	return d.examples[i]
}

// Batches returns a source of fixed-size batches over the dataset. The last
// batch may be shorter.
func (d *Dataset) Batches(batchSize int) BatchSource {
	return &batchSource{dataset: d, batchSize: batchSize}
}

type batchSource struct {
	dataset   *Dataset
	batchSize int
	cursor    int
}

func (s *batchSource) Reset() {
	s.cursor = 0
}

func (s *batchSource) Next() (*Batch, error) {
	if s.cursor >= len(s.dataset.examples) {
		return nil, io.EOF
	}
	end := mathutil.Min(s.cursor+s.batchSize, len(s.dataset.examples))
	batch := &Batch{
		Users:   make([]int32, 0, end-s.cursor),
		Items:   make([]int32, 0, end-s.cursor),
		Genders: make([]int32, 0, end-s.cursor),
		Ages:    make([]int32, 0, end-s.cursor),
		Labels:  make([]float32, 0, end-s.cursor),
	}
	for _, example := range s.dataset.examples[s.cursor:end] {
		batch.Users = append(batch.Users, example.User)
		batch.Items = append(batch.Items, example.Item)
		batch.Genders = append(batch.Genders, example.Gender)
		batch.Ages = append(batch.Ages, example.Age)
		batch.Labels = append(batch.Labels, example.Label)
	}
	s.cursor = end
	return batch, nil
}

// NegativeSample returns a new dataset holding the receiver's examples plus
// perUser sampled items per user that the user never interacted with, labeled
// zero. Side features of the negatives are copied from the user's first
// example.
func (d *Dataset) NegativeSample(itemNum, perUser int, rng base.RandomGenerator) *Dataset {
	positives := make(map[int32]mapset.Set[int32])
	profiles := make(map[int32]Example)
	for _, example := range d.examples {
		if _, exist := positives[example.User]; !exist {
			positives[example.User] = mapset.NewSet[int32]()
			profiles[example.User] = example
		}
		positives[example.User].Add(example.Item)
	}
	users := make([]int32, 0, len(positives))
	for user := range positives {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	sampled := NewDataset(len(d.examples) + len(users)*perUser)
	sampled.examples = append(sampled.examples, d.examples...)
	for _, user := range users {
		profile := profiles[user]
		for _, item := range rng.SampleInt32(0, int32(itemNum), perUser, positives[user]) {
			sampled.Add(Example{
				User:   user,
				Item:   item,
				Gender: profile.Gender,
				Age:    profile.Age,
				Label:  0,
			})
		}
	}
	return sampled
}
