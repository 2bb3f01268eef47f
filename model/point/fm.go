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
	"fmt"
	"io"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/daisy-go/pointfm/base"
	"github.com/daisy-go/pointfm/base/log"
	"github.com/daisy-go/pointfm/base/progress"
	"github.com/daisy-go/pointfm/common/nn"
	"github.com/daisy-go/pointfm/model"
)

// Loss functions.
const (
	CL = "CL" // binary cross entropy with logits
	SL = "SL" // squared error
)

// Side feature modes.
const (
	FeatureGender = 0
	FeatureAge    = 1
	FeatureBoth   = 2
)

const (
	SGDOptimizer      = "sgd"
	NormalInitializer = "normal"

	genderCount = 2
	ageCount    = 3

	// stop once the epoch loss moves less than this
	earlyStopDelta = 1e-5
)

var (
	ErrInvalidLossType    = errors.New("invalid loss type")
	ErrInvalidOptimizer   = errors.New("invalid optimizer")
	ErrInvalidInitializer = errors.New("invalid initializer")
	ErrDiverged           = errors.New("training loss is not finite")
)

// table is an embedding table with a per-row scalar bias.
type table struct {
	weight *nn.Tensor
	bias   *nn.Tensor
}

func newTable(rng base.RandomGenerator, rows, factors int) *table {
	return &table{
		weight: nn.NewTensor(rng.NormalVector(rows*factors, 0, 1), rows, factors).RequireGrad(),
		bias:   nn.Zeros(rows, 1).RequireGrad(),
	}
}

func (t *table) lookup(indices *nn.Tensor) *nn.Tensor {
	return nn.Embedding(t.weight, indices)
}

func (t *table) biasFor(indices *nn.Tensor) *nn.Tensor {
	return nn.Flatten(nn.Embedding(t.bias, indices))
}

// penalty regularizes the whole table, not just the rows touched by a batch.
func (t *table) penalty(reg1, reg2 float32) *nn.Tensor {
	return nn.Add(
		nn.Mul(nn.L1Norm(t.weight), nn.NewScalar(reg1)),
		nn.Mul(nn.L2Norm(t.weight), nn.NewScalar(reg2)))
}

func (t *table) parameters() []*nn.Tensor {
	return []*nn.Tensor{t.weight, t.bias}
}

// sideTerms contributes the score terms and the penalty of the side feature
// tables selected at construction.
type sideTerms interface {
	score(prediction, eu, ei *nn.Tensor, batch *Batch) *nn.Tensor
	penalty(reg1, reg2 float32) *nn.Tensor
	parameters() []*nn.Tensor
}

type noSide struct{}

func (noSide) score(prediction, _, _ *nn.Tensor, _ *Batch) *nn.Tensor {
	return prediction
}

func (noSide) penalty(_, _ float32) *nn.Tensor {
	return nil
}

func (noSide) parameters() []*nn.Tensor {
	return nil
}

type genderSide struct {
	gender *table
}

func (s *genderSide) score(prediction, eu, ei *nn.Tensor, batch *Batch) *nn.Tensor {
	genders := indexTensor(batch.Genders)
	eg := s.gender.lookup(genders)
	prediction = nn.Add(prediction, nn.BatchDot(eg, eu))
	prediction = nn.Add(prediction, nn.BatchDot(eg, ei))
	return nn.Add(prediction, s.gender.biasFor(genders))
}

func (s *genderSide) penalty(reg1, reg2 float32) *nn.Tensor {
	return s.gender.penalty(reg1, reg2)
}

func (s *genderSide) parameters() []*nn.Tensor {
	return s.gender.parameters()
}

type ageSide struct {
	age *table
}

func (s *ageSide) score(prediction, eu, ei *nn.Tensor, batch *Batch) *nn.Tensor {
	ages := indexTensor(batch.Ages)
	ea := s.age.lookup(ages)
	prediction = nn.Add(prediction, nn.BatchDot(ea, eu))
	prediction = nn.Add(prediction, nn.BatchDot(ea, ei))
	return nn.Add(prediction, s.age.biasFor(ages))
}

func (s *ageSide) penalty(reg1, reg2 float32) *nn.Tensor {
	return s.age.penalty(reg1, reg2)
}

func (s *ageSide) parameters() []*nn.Tensor {
	return s.age.parameters()
}

type bothSides struct {
	gender *table
	age    *table
}

func (s *bothSides) score(prediction, eu, ei *nn.Tensor, batch *Batch) *nn.Tensor {
	genders := indexTensor(batch.Genders)
	ages := indexTensor(batch.Ages)
	eg := s.gender.lookup(genders)
	ea := s.age.lookup(ages)
	prediction = nn.Add(prediction, nn.BatchDot(eg, eu))
	prediction = nn.Add(prediction, nn.BatchDot(eg, ei))
	prediction = nn.Add(prediction, nn.BatchDot(ea, eu))
	prediction = nn.Add(prediction, nn.BatchDot(ea, ei))
	prediction = nn.Add(prediction, nn.BatchDot(ea, eg))
	prediction = nn.Add(prediction, s.gender.biasFor(genders))
	return nn.Add(prediction, s.age.biasFor(ages))
}

func (s *bothSides) penalty(reg1, reg2 float32) *nn.Tensor {
	return nn.Add(s.gender.penalty(reg1, reg2), s.age.penalty(reg1, reg2))
}

func (s *bothSides) parameters() []*nn.Tensor {
	return append(s.gender.parameters(), s.age.parameters()...)
}

// PointFM is a point-wise factorization machine over user, item and optional
// demographic embeddings. The score of a pair is the sum of the pairwise dot
// products of the embeddings involved plus their biases and a global bias.
type PointFM struct {
	model.BaseModel
	user       *table
	item       *table
	globalBias *nn.Tensor
	side       sideTerms
	userNum    int
	itemNum    int
	// hyper-parameters
	nFactors    int
	nEpochs     int
	lr          float32
	reg1        float32
	reg2        float32
	lossType    string
	optimizer   string
	initializer string
	device      string
	feature     int
	earlyStop   bool
}

// NewPointFM creates a point-wise FM with all parameter tables allocated and
// initialized. Embeddings are drawn from the standard normal distribution
// seeded by model.RandomState and all biases start at zero.
func NewPointFM(userNum, itemNum int, params model.Params) *PointFM {
	fm := &PointFM{userNum: userNum, itemNum: itemNum}
	fm.SetParams(params)
	fm.init()
	return fm
}

func (fm *PointFM) SetParams(params model.Params) {
	fm.BaseModel.SetParams(params)
	fm.nFactors = fm.Params.GetInt(model.NFactors, 84)
	fm.nEpochs = fm.Params.GetInt(model.NEpochs, 20)
	fm.lr = fm.Params.GetFloat32(model.Lr, 0.001)
	fm.reg1 = fm.Params.GetFloat32(model.Reg1, 0.001)
	fm.reg2 = fm.Params.GetFloat32(model.Reg2, 0.001)
	fm.lossType = fm.Params.GetString(model.LossType, CL)
	fm.optimizer = fm.Params.GetString(model.Optimizer, SGDOptimizer)
	fm.initializer = fm.Params.GetString(model.Initializer, NormalInitializer)
	fm.device = fm.Params.GetString(model.Device, "0")
	fm.feature = fm.Params.GetInt(model.Feature, FeatureAge)
	fm.earlyStop = fm.Params.GetBool(model.EarlyStop, true)
}

func (fm *PointFM) GetParamsGrid() model.ParamsGrid {
	return model.ParamsGrid{
		model.NFactors: {8, 16, 32, 64, 84, 128},
		model.Lr:       {0.001, 0.005, 0.01, 0.05},
		model.Reg1:     {0.0001, 0.001, 0.01},
		model.Reg2:     {0.0001, 0.001, 0.01},
	}
}

func (fm *PointFM) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NFactors: lo.Must(trial.SuggestStepInt("n_factors", 8, 128, 8)),
		model.Lr:       lo.Must(trial.SuggestLogFloat("lr", 1e-4, 1e-1)),
		model.Reg1:     lo.Must(trial.SuggestLogFloat("reg_1", 1e-5, 1e-1)),
		model.Reg2:     lo.Must(trial.SuggestLogFloat("reg_2", 1e-5, 1e-1)),
	}
}

func (fm *PointFM) Clear() {
	fm.user = nil
	fm.item = nil
	fm.globalBias = nil
	fm.side = nil
}

func (fm *PointFM) Invalid() bool {
	return fm == nil || fm.user == nil || fm.item == nil
}

// init allocates all parameter tables. The draw order is fixed so that the
// same seed always yields the same initial state.
func (fm *PointFM) init() {
	rng := base.NewRandomGenerator(fm.Params.GetInt64(model.RandomState, 0))
	fm.user = newTable(rng, fm.userNum, fm.nFactors)
	fm.item = newTable(rng, fm.itemNum, fm.nFactors)
	switch fm.feature {
	case FeatureGender:
		fm.side = &genderSide{gender: newTable(rng, genderCount, fm.nFactors)}
	case FeatureAge:
		fm.side = &ageSide{age: newTable(rng, ageCount, fm.nFactors)}
	case FeatureBoth:
		fm.side = &bothSides{
			gender: newTable(rng, genderCount, fm.nFactors),
			age:    newTable(rng, ageCount, fm.nFactors),
		}
	default:
		fm.side = noSide{}
	}
	fm.globalBias = nn.Zeros().RequireGrad()
}

func (fm *PointFM) parameters() []*nn.Tensor {
	parameters := make([]*nn.Tensor, 0, 9)
	parameters = append(parameters, fm.user.parameters()...)
	parameters = append(parameters, fm.item.parameters()...)
	parameters = append(parameters, fm.side.parameters()...)
	return append(parameters, fm.globalBias)
}

func (fm *PointFM) forward(batch *Batch) *nn.Tensor {
	users := indexTensor(batch.Users)
	items := indexTensor(batch.Items)
	eu := fm.user.lookup(users)
	ei := fm.item.lookup(items)
	prediction := nn.BatchDot(eu, ei)
	prediction = nn.Add(prediction, fm.user.biasFor(users))
	prediction = nn.Add(prediction, fm.item.biasFor(items))
	prediction = nn.Add(prediction, fm.globalBias)
	return fm.side.score(prediction, eu, ei, batch)
}

func (fm *PointFM) penalty() *nn.Tensor {
	penalty := nn.Add(fm.user.penalty(fm.reg1, fm.reg2), fm.item.penalty(fm.reg1, fm.reg2))
	if side := fm.side.penalty(fm.reg1, fm.reg2); side != nil {
		penalty = nn.Add(penalty, side)
	}
	return penalty
}

func (fm *PointFM) criterion() (func(prediction, target *nn.Tensor) *nn.Tensor, error) {
	switch fm.lossType {
	case CL:
		return nn.BCEWithLogits, nil
	case SL:
		return nn.SumSquaredError, nil
	default:
		return nil, errors.Annotatef(ErrInvalidLossType, "%q", fm.lossType)
	}
}

// Fit trains the model on the train set. The configuration is validated
// before the first batch is consumed. A non-finite loss aborts training
// mid-epoch with ErrDiverged.
func (fm *PointFM) Fit(ctx context.Context, trainSet BatchSource, config *FitConfig) error {
	config = config.LoadDefaultIfNil()
	criterion, err := fm.criterion()
	if err != nil {
		return err
	}
	if fm.optimizer != SGDOptimizer {
		return errors.Annotatef(ErrInvalidOptimizer, "%q", fm.optimizer)
	}
	if fm.initializer != NormalInitializer {
		return errors.Annotatef(ErrInvalidInitializer, "%q", fm.initializer)
	}
	if fm.Invalid() {
		fm.init()
	}
	log.Logger().Info("fit PointFM",
		zap.Int("n_users", fm.userNum),
		zap.Int("n_items", fm.itemNum),
		zap.String("device", fm.device),
		zap.Any("params", fm.GetParams()),
		zap.Any("config", config))
	optimizer := nn.NewSGD(fm.parameters(), fm.lr)
	_, span := progress.Start(ctx, "PointFM.Fit", fm.nEpochs)
	var lastLoss float32
	for epoch := 1; epoch <= fm.nEpochs; epoch++ {
		fitStart := time.Now()
		trainSet.Reset()
		var bar *progressbar.ProgressBar
		if config.ShowProgress {
			bar = progressbar.NewOptions(-1,
				progressbar.OptionSetDescription(fmt.Sprintf("[Epoch %v/%v]", epoch, fm.nEpochs)))
		}
		var epochLoss float32
		for {
			batch, err := trainSet.Next()
			if err == io.EOF {
				break
			} else if err != nil {
				span.Fail(err)
				return errors.Trace(err)
			}
			if batch.Len() == 0 {
				continue
			}
			optimizer.ZeroGrad()
			prediction := fm.forward(batch)
			target := nn.NewTensor(batch.Labels, batch.Len())
			loss := nn.Add(criterion(prediction, target), fm.penalty())
			cost := loss.Data()[0]
			if math32.IsNaN(cost) || math32.IsInf(cost, 0) {
				err = errors.Annotatef(ErrDiverged, "epoch %v", epoch)
				span.Fail(err)
				return err
			}
			loss.Backward()
			optimizer.Step()
			epochLoss += cost
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		if bar != nil {
			_ = bar.Finish()
		}
		span.Add(1)
		if epoch%config.Verbose == 0 || epoch == fm.nEpochs {
			log.Logger().Debug(fmt.Sprintf("epoch %v/%v", epoch, fm.nEpochs),
				zap.Duration("fit_time", time.Since(fitStart)),
				zap.Float32("loss", epochLoss))
		}
		if fm.earlyStop && math32.Abs(epochLoss-lastLoss) < earlyStopDelta {
			log.Logger().Info("early stop",
				zap.Int("epoch", epoch),
				zap.Float32("loss", epochLoss))
			break
		}
		lastLoss = epochLoss
	}
	span.End()
	return nil
}

// Predict returns the raw scores for user-item pairs. In feature modes that
// do not use genders or ages the corresponding arguments are ignored and may
// be nil.
func (fm *PointFM) Predict(users, items, genders, ages []int32) []float32 {
	prediction := fm.forward(&Batch{
		Users:   users,
		Items:   items,
		Genders: genders,
		Ages:    ages,
	})
	output := make([]float32, len(prediction.Data()))
	copy(output, prediction.Data())
	return output
}

func indexTensor(indices []int32) *nn.Tensor {
	data := make([]float32, len(indices))
	for i, index := range indices {
		data[i] = float32(index)
	}
	return nn.NewTensor(data, len(indices))
}
