package dcsim

import "fmt"

// Characteristics are descriptive labels and a linear cost model. They never influence scheduling.
type Characteristics struct {
	Arch           string  `yaml:"arch"`
	Os             string  `yaml:"os"`
	Vmm            string  `yaml:"vmm"`
	TimeZone       float64 `yaml:"time_zone" validate:"min=-12,max=14"`
	CostPerSec     float64 `yaml:"cost_per_sec" validate:"min=0"`
	CostPerMem     float64 `yaml:"cost_per_mem" validate:"min=0"`
	CostPerStorage float64 `yaml:"cost_per_storage" validate:"min=0"`
	CostPerBw      float64 `yaml:"cost_per_bw" validate:"min=0"`
}

func (ch Characteristics) String() string {
	return fmt.Sprintf("{%s/%s/%s tz %.1f, cost sec %.3f mem %.3f storage %.3f bw %.3f}",
		ch.Arch, ch.Os, ch.Vmm, ch.TimeZone, ch.CostPerSec, ch.CostPerMem, ch.CostPerStorage, ch.CostPerBw)
}

// cpu seconds plus the bytes moved in and out
func (ch Characteristics) cloudletCost(cl *Cloudlet) float64 {
	return ch.CostPerSec*cl.actualCpuTime() + ch.CostPerBw*float64(cl.fileSize+cl.outputSize)
}

// what hosting vm costs, independent of how long it ran
func (ch Characteristics) vmCost(vm *Vm) float64 {
	return ch.CostPerMem*float64(vm.ram) + ch.CostPerStorage*float64(vm.size) + ch.CostPerBw*float64(vm.bw)
}
