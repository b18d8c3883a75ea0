package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	"gonum.org/v1/gonum/stat"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"dcsim"
)

var (
	version string
	app     = kingpin.New("dcsim", "Datacenter resource allocation and scheduling simulator")

	debug = app.Flag(
		"debug", "enable debug logging (one line per event)").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML scenario files (can be provided multiple times to merge configs); "+
			"the built-in scenario is used when none is given").
		Short('c').
		ExistingFiles()

	traceDir = app.Flag(
		"trace", "write csv traces of events, vm allocation and cloudlets to this directory").
		Envar("DCSIM_TRACE_DIR").
		String()

	randomWorkload = app.Flag(
		"random-workload", "number of extra generated cloudlets (workload.count override)").
		Default("0").
		Int()

	seed = app.Flag(
		"seed", "seed for generated workloads and stochastic utilization (workload.seed override)").
		Default("0").
		Uint64()

	printMetrics = app.Flag(
		"metrics", "print the simulation counters at the end").
		Default("false").
		Bool()
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	initialLevel := log.InfoLevel
	if *debug {
		initialLevel = log.DebugLevel
	}
	log.SetLevel(initialLevel)

	cfg, err := dcsim.LoadConfig(*cfgFiles...)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	if *randomWorkload > 0 {
		cfg.Workload.Count = *randomWorkload
	}
	if *seed != 0 {
		cfg.Workload.Seed = *seed
	}

	log.WithFields(log.Fields{
		"datacenter": cfg.Datacenter.Name,
		"hosts":      len(cfg.HostSpecs()),
		"policy":     cfg.Datacenter.AllocationPolicy,
	}).Info("Starting dcsim")

	scope := tally.NewTestScope("dcsim", nil)
	opts := append(cfg.Options(), dcsim.WithScope(scope), dcsim.WithLogger(log.StandardLogger()))

	if *traceDir != "" {
		writers, closeTraces, err := dcsim.OpenTraceFiles(*traceDir)
		if err != nil {
			log.WithError(err).Fatal("Failed to open trace files")
		}
		defer func() {
			if err := closeTraces(); err != nil {
				log.WithError(err).Error("Failed to flush trace files")
			}
		}()
		opts = append(opts, dcsim.WithTraceWriters(writers))
	}

	sim := dcsim.NewSimulation(opts...)
	dc, broker, err := cfg.Setup(sim)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up scenario")
	}
	printSetup(cfg, dc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := sim.RunUntilIdle(ctx); err != nil {
		log.WithError(err).Error("Simulation did not finish")
	}

	results, err := sim.ReceivedCloudlets(broker.Id())
	if err != nil {
		log.WithError(err).Fatal("Failed to collect results")
	}
	printCloudletList(results)
	printSummary(results, broker)
	fmt.Printf("hosting cost of placed vms: %s\n", dft(dc.HostingCost()))
	if *printMetrics {
		printCounters(scope)
	}
}

func printSetup(cfg *dcsim.Config, dc *dcsim.Datacenter) {
	ch := dc.Characteristics()
	fmt.Println("========== SETUP ==========")
	fmt.Printf("Datacenter %d %s: %s/%s/%s, time zone %v\n", dc.Id(), dc.Name(), ch.Arch, ch.Os, ch.Vmm, ch.TimeZone)
	for _, g := range cfg.Datacenter.Hosts {
		fmt.Printf("  %d hosts: %d pes x %v mips, ram %d MB, bw %d, storage %d MB, %v\n",
			g.Count, g.Pes, g.PeMips, g.Ram, g.Bw, g.Storage, g.VmScheduler)
	}
	for _, g := range cfg.Vms {
		fmt.Printf("  %d vms: %v mips, %d pes (+%d), ram %d MB (+%d), bw %d, image %d MB, %v\n",
			g.Count, g.Mips, g.Pes, g.PesStep, g.Ram, g.RamStep, g.Bw, g.Size, g.CloudletScheduler)
	}
	for _, g := range cfg.Cloudlets {
		fmt.Printf("  %d cloudlets: length %v (+%v), %d pes, utilization %s\n",
			g.Count, g.Length, g.LengthStep, g.Pes, g.Utilization)
	}
	if cfg.Workload.Count > 0 {
		fmt.Printf("  %d generated cloudlets, seed %d\n", cfg.Workload.Count, cfg.Workload.Seed)
	}
}

// two decimals at most, trailing zeros dropped
func dft(v float64) string {
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func printCloudletList(results []dcsim.CloudletResult) {
	indent := "    "
	fmt.Println()
	fmt.Println("========== OUTPUT ==========")
	fmt.Println("Cloudlet ID" + indent + "STATUS" + indent + "Data center ID" + indent + "VM ID" + indent +
		"Time" + indent + "Start Time" + indent + "Finish Time" + indent + "Cost")
	for _, r := range results {
		fmt.Println(indent + strconv.Itoa(r.Id) + indent + indent + r.Status.String() +
			indent + indent + strconv.Itoa(r.DatacenterId) +
			indent + indent + indent + strconv.Itoa(r.VmId) +
			indent + indent + dft(r.ActualCpuTime) +
			indent + indent + dft(r.StartTime) +
			indent + indent + dft(r.FinishTime) +
			indent + indent + dft(r.Cost))
	}
}

func printSummary(results []dcsim.CloudletResult, broker *dcsim.Broker) {
	cpuTimes := make([]float64, 0, len(results))
	nFailed := 0
	for _, r := range results {
		if r.Status != dcsim.STATUS_SUCCESS {
			nFailed += 1
			continue
		}
		cpuTimes = append(cpuTimes, r.ActualCpuTime)
	}
	fmt.Println()
	fmt.Printf("%d cloudlets returned, %d failed; vms created %v, rejected %v\n",
		len(results), nFailed, broker.CreatedVmIds(), broker.RejectedVmIds())
	if len(cpuTimes) > 0 {
		fmt.Printf("cpu time: mean %s stddev %s\n", dft(stat.Mean(cpuTimes, nil)), dft(stat.StdDev(cpuTimes, nil)))
	}
	for _, vmId := range broker.CreatedVmIds() {
		if d, ok := broker.Turnaround(vmId); ok {
			fmt.Printf("  vm %d turnaround %s\n", vmId, d.String())
		}
	}
}

func printCounters(scope tally.TestScope) {
	snap := scope.Snapshot()
	fmt.Println()
	for _, c := range snap.Counters() {
		fmt.Printf("%s %v = %d\n", c.Name(), c.Tags(), c.Value())
	}
	for _, g := range snap.Gauges() {
		fmt.Printf("%s %v = %v\n", g.Name(), g.Tags(), g.Value())
	}
}
