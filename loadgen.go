package dcsim

import (
	"math"

	"github.com/markphelps/optional"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// constants characterizing the generated workload
const (
	MIN_LENGTH   = 10000   // MI
	MAX_LENGTH   = 2000000 // MI
	PARETO_ALPHA = 2.5

	// cloudlets per simulated second
	ARRIVAL_RATE = 0.5

	GEN_FILE_SIZE   = 300
	GEN_OUTPUT_SIZE = 300
)

// WorkloadConfig shapes a generated workload. Zero fields take the package defaults.
type WorkloadConfig struct {
	Count       int     `yaml:"count" validate:"min=0"`
	Seed        uint64  `yaml:"seed"`
	FirstId     int     `yaml:"first_id" validate:"min=0"`
	MinLength   float64 `yaml:"min_length" validate:"min=0"`
	MaxLength   float64 `yaml:"max_length" validate:"min=0"`
	ParetoAlpha float64 `yaml:"pareto_alpha" validate:"min=0"`
	ArrivalRate float64 `yaml:"arrival_rate" validate:"min=0"`
	Cores       int     `yaml:"cores" validate:"min=0"`
	// vm ids to bind to round robin; empty leaves binding to the broker
	VmIds []int `yaml:"vm_ids"`
}

type LoadGen interface {
	GenLoad(nCloudlets int) ([]*Cloudlet, error)
}

// LoadGenT draws heavy tailed lengths and poisson arrivals
type LoadGenT struct {
	cfg          WorkloadConfig
	lengths      distuv.Pareto
	interArrival distuv.Exponential
	nextId       int
	nextVm       int
	arrival      Ttime
}

func NewLoadGen(cfg WorkloadConfig) *LoadGenT {
	if cfg.MinLength <= 0 {
		cfg.MinLength = MIN_LENGTH
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = MAX_LENGTH
	}
	if cfg.ParetoAlpha <= 0 {
		cfg.ParetoAlpha = PARETO_ALPHA
	}
	if cfg.ArrivalRate <= 0 {
		cfg.ArrivalRate = ARRIVAL_RATE
	}
	if cfg.Cores <= 0 {
		cfg.Cores = 1
	}
	return &LoadGenT{
		cfg:          cfg,
		lengths:      distuv.Pareto{Xm: cfg.MinLength, Alpha: cfg.ParetoAlpha, Src: rand.NewSource(cfg.Seed)},
		interArrival: distuv.Exponential{Rate: cfg.ArrivalRate, Src: rand.NewSource(cfg.Seed + 1)},
		nextId:       cfg.FirstId,
	}
}

// GenLoad returns the next nCloudlets cloudlets; submit delays keep growing across calls.
func (lg *LoadGenT) GenLoad(nCloudlets int) ([]*Cloudlet, error) {
	cls := make([]*Cloudlet, 0, nCloudlets)
	for i := 0; i < nCloudlets; i++ {
		length := math.Min(lg.lengths.Rand(), lg.cfg.MaxLength)

		spec := CloudletSpec{
			Id:          lg.nextId,
			Length:      math.Round(length),
			Cores:       lg.cfg.Cores,
			FileSize:    GEN_FILE_SIZE,
			OutputSize:  GEN_OUTPUT_SIZE,
			SubmitDelay: lg.arrival,
		}
		if len(lg.cfg.VmIds) > 0 {
			spec.VmId = optional.NewInt(lg.cfg.VmIds[lg.nextVm%len(lg.cfg.VmIds)])
			lg.nextVm += 1
		}
		cl, err := NewCloudlet(spec)
		if err != nil {
			return nil, err
		}
		cls = append(cls, cl)

		lg.nextId += 1
		lg.arrival += Ttime(lg.interArrival.Rand())
	}
	return cls, nil
}
