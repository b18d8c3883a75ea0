package dcsim

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/markphelps/optional"
	"github.com/pkg/errors"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Config describes one scenario: a datacenter, the vms and cloudlets one broker submits,
// and run options.
type Config struct {
	Datacenter DatacenterConfig `yaml:"datacenter"`
	Vms        []VmGroup        `yaml:"vms"`
	Cloudlets  []CloudletGroup  `yaml:"cloudlets"`
	Workload   WorkloadConfig   `yaml:"workload"`
	Simulation SimConfig        `yaml:"simulation"`
}

type DatacenterConfig struct {
	Name             string          `yaml:"name" validate:"nonzero"`
	AllocationPolicy AllocPolicy     `yaml:"allocation_policy"`
	Characteristics  Characteristics `yaml:"characteristics"`
	Hosts            []HostGroup     `yaml:"hosts" validate:"min=1"`
}

// HostGroup is Count identical hosts.
type HostGroup struct {
	Count       int           `yaml:"count" validate:"min=1"`
	Pes         int           `yaml:"pes" validate:"min=1"`
	PeMips      float64       `yaml:"pe_mips" validate:"nonzero"`
	Ram         Tmem          `yaml:"ram" validate:"min=1"`
	Bw          Tbw           `yaml:"bw" validate:"min=0"`
	Storage     Tmem          `yaml:"storage" validate:"min=0"`
	VmScheduler VmSchedPolicy `yaml:"vm_scheduler"`
}

// VmGroup is Count vms; the i-th one gets Pes+i*PesStep cores and Ram+i*RamStep ram.
type VmGroup struct {
	Count             int                 `yaml:"count" validate:"min=1"`
	Mips              float64             `yaml:"mips" validate:"nonzero"`
	Pes               int                 `yaml:"pes" validate:"min=1"`
	PesStep           int                 `yaml:"pes_step" validate:"min=0"`
	Ram               Tmem                `yaml:"ram" validate:"min=1"`
	RamStep           Tmem                `yaml:"ram_step" validate:"min=0"`
	Bw                Tbw                 `yaml:"bw" validate:"min=0"`
	Size              Tmem                `yaml:"size" validate:"min=0"`
	Vmm               string              `yaml:"vmm"`
	CloudletScheduler CloudletSchedPolicy `yaml:"cloudlet_scheduler"`
}

// CloudletGroup is Count cloudlets; the i-th one is Length+i*LengthStep long.
type CloudletGroup struct {
	Count       int     `yaml:"count" validate:"min=1"`
	Length      float64 `yaml:"length" validate:"nonzero"`
	LengthStep  float64 `yaml:"length_step" validate:"min=0"`
	Pes         int     `yaml:"pes" validate:"min=1"`
	FileSize    Tmem    `yaml:"file_size" validate:"min=0"`
	OutputSize  Tmem    `yaml:"output_size" validate:"min=0"`
	Utilization string  `yaml:"utilization"`
	// bind every cloudlet of the group to this vm instead of round robin
	VmId        *int    `yaml:"vm_id"`
	SubmitDelay float64 `yaml:"submit_delay" validate:"min=0"`
}

type HostFailure struct {
	HostId int     `yaml:"host_id" validate:"min=0"`
	At     float64 `yaml:"at" validate:"min=0"`
}

type SimConfig struct {
	TerminationTime    float64       `yaml:"termination_time" validate:"min=0"`
	SchedulingInterval float64       `yaml:"scheduling_interval" validate:"min=0"`
	HostFailures       []HostFailure `yaml:"host_failures"`
}

// ValidationError is returned when a configuration fails to pass validation
type ValidationError struct {
	errorMap validator.ErrorMap
}

// ErrForField returns the validation error for the given field
func (e ValidationError) ErrForField(name string) error {
	return e.errorMap[name]
}

func (e ValidationError) Error() string {
	var w bytes.Buffer

	fmt.Fprintf(&w, "validation failed")
	for f, err := range e.errorMap {
		fmt.Fprintf(&w, "   %s: %v\n", f, err)
	}

	return w.String()
}

// Parse loads the given configFiles in order, merges them together, and parses into the given config.
func Parse(config interface{}, configFiles ...string) error {
	if len(configFiles) == 0 {
		return errors.New("no files to load")
	}
	for _, fname := range configFiles {
		data, err := os.ReadFile(fname)
		if err != nil {
			return errors.Wrapf(err, "read config %s", fname)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return errors.Wrapf(err, "parse config %s", fname)
		}
	}

	// Validate on the merged config at the end.
	return validate(config)
}

func validate(config interface{}) error {
	if err := validator.Validate(config); err != nil {
		if em, ok := err.(validator.ErrorMap); ok {
			return ValidationError{errorMap: em}
		}
		return err
	}
	return nil
}

// LoadConfig overlays configFiles onto DefaultConfig. With no files the defaults are returned validated.
func LoadConfig(configFiles ...string) (*Config, error) {
	cfg := DefaultConfig()
	if len(configFiles) == 0 {
		return cfg, validate(cfg)
	}
	if err := Parse(cfg, configFiles...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig is the reference scenario: 20 hosts of 8 pes, 5 growing vms, 10 cloudlets.
// Vms are placed most-free-pes first, the host ordering of the simple allocation policy
// the scenario comes from; first fit would stack the first three vms on host 0 instead.
func DefaultConfig() *Config {
	return &Config{
		Datacenter: DatacenterConfig{
			Name:             "Datacenter_0",
			AllocationPolicy: ALLOC_MOST_FREE_PES,
			Characteristics: Characteristics{
				Arch:           "x86",
				Os:             "Linux",
				Vmm:            "Xen",
				TimeZone:       1.0,
				CostPerSec:     3.0,
				CostPerMem:     0.05,
				CostPerStorage: 0.001,
				CostPerBw:      0.0,
			},
			Hosts: []HostGroup{{
				Count:       20,
				Pes:         8,
				PeMips:      1000,
				Ram:         16384,
				Bw:          10000,
				Storage:     1000000,
				VmScheduler: VM_SCHED_TIME_SHARED,
			}},
		},
		Vms: []VmGroup{{
			Count:             5,
			Mips:              1000,
			Pes:               1,
			PesStep:           1,
			Ram:               512,
			RamStep:           128,
			Bw:                1000,
			Size:              10000,
			Vmm:               "Xen",
			CloudletScheduler: CLOUDLET_SCHED_TIME_SHARED,
		}},
		Cloudlets: []CloudletGroup{{
			Count:       10,
			Length:      400000,
			LengthStep:  10000,
			Pes:         1,
			FileSize:    300,
			OutputSize:  300,
			Utilization: "full",
		}},
	}
}

func (cfg *Config) HostSpecs() []HostSpec {
	specs := make([]HostSpec, 0)
	for _, g := range cfg.Datacenter.Hosts {
		for i := 0; i < g.Count; i++ {
			mips := make([]float64, g.Pes)
			for j := range mips {
				mips[j] = g.PeMips
			}
			specs = append(specs, HostSpec{
				Id:          len(specs),
				PeMips:      mips,
				Ram:         g.Ram,
				Bw:          g.Bw,
				Storage:     g.Storage,
				VmScheduler: g.VmScheduler,
			})
		}
	}
	return specs
}

func (cfg *Config) NewVms() ([]*Vm, error) {
	vms := make([]*Vm, 0)
	for _, g := range cfg.Vms {
		for i := 0; i < g.Count; i++ {
			vm, err := NewVm(VmSpec{
				Id:                len(vms),
				Mips:              g.Mips,
				Cores:             g.Pes + i*g.PesStep,
				Ram:               g.Ram + Tmem(i)*g.RamStep,
				Bw:                g.Bw,
				Size:              g.Size,
				Vmm:               g.Vmm,
				CloudletScheduler: g.CloudletScheduler,
			})
			if err != nil {
				return nil, err
			}
			vms = append(vms, vm)
		}
	}
	return vms, nil
}

// NewCloudlets builds the listed groups followed by the generated workload, if any.
func (cfg *Config) NewCloudlets() ([]*Cloudlet, error) {
	cls := make([]*Cloudlet, 0)
	for _, g := range cfg.Cloudlets {
		for i := 0; i < g.Count; i++ {
			id := len(cls)
			util, err := parseUtilization(g.Utilization, uint64(cfg.Workload.Seed)+uint64(id))
			if err != nil {
				return nil, err
			}
			spec := CloudletSpec{
				Id:             id,
				Length:         g.Length + float64(i)*g.LengthStep,
				Cores:          g.Pes,
				FileSize:       g.FileSize,
				OutputSize:     g.OutputSize,
				UtilizationCpu: util,
				UtilizationRam: UtilizationFull(),
				UtilizationBw:  UtilizationFull(),
				SubmitDelay:    Ttime(g.SubmitDelay),
			}
			if g.VmId != nil {
				spec.VmId = optional.NewInt(*g.VmId)
			}
			cl, err := NewCloudlet(spec)
			if err != nil {
				return nil, err
			}
			cls = append(cls, cl)
		}
	}
	if cfg.Workload.Count > 0 {
		wl := cfg.Workload
		if wl.FirstId < len(cls) {
			wl.FirstId = len(cls)
		}
		gen, err := NewLoadGen(wl).GenLoad(wl.Count)
		if err != nil {
			return nil, err
		}
		cls = append(cls, gen...)
	}
	return cls, nil
}

// Options turns the run section into simulation options.
func (cfg *Config) Options() []Option {
	opts := make([]Option, 0)
	if cfg.Simulation.TerminationTime > 0 {
		opts = append(opts, WithTerminationTime(Ttime(cfg.Simulation.TerminationTime)))
	}
	if cfg.Simulation.SchedulingInterval > 0 {
		opts = append(opts, WithSchedulingInterval(Ttime(cfg.Simulation.SchedulingInterval)))
	}
	return opts
}

// Setup creates the datacenter and one broker in sim and submits the scenario's vms and cloudlets.
func (cfg *Config) Setup(sim *Simulation) (*Datacenter, *Broker, error) {
	dc, err := sim.CreateDatacenter(cfg.Datacenter.Name, cfg.HostSpecs(), cfg.Datacenter.Characteristics,
		cfg.Datacenter.AllocationPolicy)
	if err != nil {
		return nil, nil, err
	}
	broker := sim.CreateBroker("Broker")

	vms, err := cfg.NewVms()
	if err != nil {
		return nil, nil, err
	}
	if err := sim.SubmitVmList(broker.Id(), vms); err != nil {
		return nil, nil, err
	}
	cls, err := cfg.NewCloudlets()
	if err != nil {
		return nil, nil, err
	}
	if err := sim.SubmitCloudletList(broker.Id(), cls); err != nil {
		return nil, nil, err
	}
	for _, hf := range cfg.Simulation.HostFailures {
		if err := sim.ScheduleHostFailure(dc.Id(), hf.HostId, Ttime(hf.At)); err != nil {
			return nil, nil, err
		}
	}
	return dc, broker, nil
}

// "full" or empty, "stochastic", or a constant fraction
func parseUtilization(s string, seed uint64) (UtilizationModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return UtilizationFull(), nil
	case "stochastic":
		return UtilizationStochastic(seed), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return nil, invalidConfig("utilization %q", s)
	}
	return UtilizationConstant(f), nil
}

const (
	bytesPerMB   = 1 << 20
	bitsPerMbit  = 1000 * 1000
	sizeUnitHint = "plain numbers or quantities like 16Gi"
)

// plain numbers are taken as already in the target unit; quantities are divided by unit
func parseSize(raw interface{}, unit int64) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return int64(n), nil
		}
		q, err := resource.ParseQuantity(v)
		if err != nil {
			return 0, invalidConfig("size %q: %v (%s)", v, err, sizeUnitHint)
		}
		return q.Value() / unit, nil
	}
	return 0, invalidConfig("size %v of type %T (%s)", raw, raw, sizeUnitHint)
}

// UnmarshalYAML reads megabytes, either plain or as a quantity ("16Gi").
func (m *Tmem) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := parseSize(raw, bytesPerMB)
	if err != nil {
		return err
	}
	*m = Tmem(v)
	return nil
}

// UnmarshalYAML reads megabits per second, either plain or as a quantity ("10G").
func (b *Tbw) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := parseSize(raw, bitsPerMbit)
	if err != nil {
		return err
	}
	*b = Tbw(v)
	return nil
}

func parseEnum(unmarshal func(interface{}) error, names []string) (int, error) {
	var s string
	if err := unmarshal(&s); err != nil {
		return 0, err
	}
	for i, n := range names {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return i, nil
		}
	}
	return 0, invalidConfig("%q is not one of %v", s, names)
}

func (p *AllocPolicy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	i, err := parseEnum(unmarshal, []string{ALLOC_FIRST_FIT.String(), ALLOC_MOST_FREE_PES.String()})
	if err != nil {
		return err
	}
	*p = AllocPolicy(i)
	return nil
}

func (p *VmSchedPolicy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	i, err := parseEnum(unmarshal, []string{VM_SCHED_TIME_SHARED.String(), VM_SCHED_SPACE_SHARED.String()})
	if err != nil {
		return err
	}
	*p = VmSchedPolicy(i)
	return nil
}

func (p *CloudletSchedPolicy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	i, err := parseEnum(unmarshal, []string{CLOUDLET_SCHED_TIME_SHARED.String(), CLOUDLET_SCHED_SPACE_SHARED.String()})
	if err != nil {
		return err
	}
	*p = CloudletSchedPolicy(i)
	return nil
}
