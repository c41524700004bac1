package main

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"web/gridcluster/cluster"
)

var (
	cpuprofile  string
	memprofile  string
	heapprofile string
	numPoints   int
	resolution  float64
	sideWidth   float64
	testall     bool
)

// Roughly the continental US in degrees.
var profileExtent = cluster.Extent{MinX: -125, MinY: 25, MaxX: -65, MaxY: 49}

var rootCmd = &cobra.Command{
	Use:   "profiler",
	Short: "Profile grid clustering passes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return profile()
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cpuprofile, "cpuprofile", "", "write cpu profile to file")
	flags.StringVar(&memprofile, "memprofile", "", "write memory profile to file")
	flags.StringVar(&heapprofile, "heapprofile", "", "write heap profile to file")
	flags.IntVar(&numPoints, "points", 100000, "number of points to generate")
	flags.Float64Var(&resolution, "resolution", 0.01, "map units per pixel to profile")
	flags.Float64Var(&sideWidth, "side-width", 0.001, "finest grid cell side")
	flags.BoolVar(&testall, "testall", false, "test all configurations")
}

type result struct {
	sideWidth float64
	records   int
	duration  time.Duration
	allocMB   float64
	gcRuns    uint32
}

func measure(fn func() int) result {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	start := time.Now()
	n := fn()
	duration := time.Since(start)

	runtime.ReadMemStats(&after)
	return result{
		records:  n,
		duration: duration,
		allocMB:  float64(after.TotalAlloc-before.TotalAlloc) / 1024 / 1024,
		gcRuns:   after.NumGC - before.NumGC,
	}
}

func newSource(points []cluster.Point) (*cluster.Source, error) {
	source, err := cluster.NewSource(cluster.Options{SideWidth: sideWidth, IgnoreFeatureChanges: true})
	if err != nil {
		return nil, err
	}
	source.SetPoints(points)
	return source, nil
}

func runSingleProfile(n int, res float64) error {
	fmt.Printf("Profiling with %d points at resolution %g\n", n, res)

	points := cluster.GenerateTestPoints(n, profileExtent, 42)
	source, err := newSource(points)
	if err != nil {
		return err
	}

	r := measure(func() int {
		source.RequestView(profileExtent, res)
		return len(source.Records())
	})

	fmt.Printf("Side width: %g\n", source.CurrentSideWidth())
	fmt.Printf("Records: %d\n", r.records)
	fmt.Printf("Clustering completed in %v\n", r.duration)
	fmt.Printf("Memory allocated: %.2f MB\n", r.allocMB)

	// A second pass for the same view must be free.
	again := measure(func() int {
		source.RequestView(profileExtent, res)
		return source.Passes()
	})
	fmt.Printf("Repeat request: %v (%d passes total)\n", again.duration, again.records)
	return nil
}

func runProfileBattery() error {
	pointCounts := []int{1000, 10000, 100000, 1000000}
	resolutions := []float64{0.0001, 0.001, 0.01, 0.1, 1}

	fmt.Println("Running comprehensive profile battery...")
	fmt.Printf("%-10s | %-10s | %-10s | %-10s | %-15s | %-12s | %-8s\n",
		"Points", "Resolution", "Side", "Records", "Duration", "Memory (MB)", "GC Runs")
	fmt.Println("------------------------------------------------------------------------------------------")

	for _, n := range pointCounts {
		points := cluster.GenerateTestPoints(n, profileExtent, 42)
		engine, err := cluster.NewEngine(cluster.Options{SideWidth: sideWidth})
		if err != nil {
			return err
		}

		for _, res := range resolutions {
			side, err := engine.SideWidth(res)
			if err != nil {
				return err
			}
			r := measure(func() int {
				return len(engine.Cluster(points, profileExtent, side))
			})
			r.sideWidth = side

			fmt.Printf("%-10d | %-10g | %-10g | %-10d | %-15s | %-12.2f | %-8d\n",
				n, res, r.sideWidth, r.records, r.duration, r.allocMB, r.gcRuns)
		}
		fmt.Println("------------------------------------------------------------------------------------------")
	}
	return nil
}

func writeProfile(path, name string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s profile: %w", name, err)
	}
	defer f.Close()

	runtime.GC()
	p := pprof.Lookup(name)
	if p == nil {
		return fmt.Errorf("could not find %s profile", name)
	}
	return p.WriteTo(f, 0)
}

func profile() error {
	if !(sideWidth > 0) || math.IsInf(sideWidth, 0) {
		return fmt.Errorf("side width must be positive, got %g", sideWidth)
	}

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()

		logrus.Info("starting CPU profiling")
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	var err error
	if testall {
		err = runProfileBattery()
	} else {
		err = runSingleProfile(numPoints, resolution)
	}
	if err != nil {
		return err
	}

	if memprofile != "" {
		if err := writeProfile(memprofile, "allocs"); err != nil {
			return err
		}
	}
	if heapprofile != "" {
		if err := writeProfile(heapprofile, "heap"); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
