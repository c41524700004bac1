package cluster

import (
	"testing"
)

func benchmarkClustering(b *testing.B, numPoints int, resolution float64) {
	world := Extent{MinX: -20000, MinY: -20000, MaxX: 20000, MaxY: 20000}
	points := GenerateTestPoints(numPoints, world, 42)

	e, err := NewEngine(Options{SideWidth: 10})
	if err != nil {
		b.Fatal(err)
	}
	side, err := e.SideWidth(resolution)
	if err != nil {
		b.Fatal(err)
	}
	view := Extent{MinX: -5000, MinY: -5000, MaxX: 5000, MaxY: 5000}.BufferFactor(0.5)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		records := e.Cluster(points, view, side)
		if len(records) == 0 {
			b.Fatal("no records")
		}
	}
}

func BenchmarkClusteringSmall_Coarse(b *testing.B) { benchmarkClustering(b, 10000, 50) }
func BenchmarkClusteringSmall_Fine(b *testing.B)   { benchmarkClustering(b, 10000, 0.1) }
func BenchmarkClusteringLarge_Coarse(b *testing.B) { benchmarkClustering(b, 1000000, 50) }
func BenchmarkClusteringLarge_Fine(b *testing.B)   { benchmarkClustering(b, 1000000, 0.1) }

func BenchmarkRequestViewUnchanged(b *testing.B) {
	s, err := NewSource(Options{SideWidth: 10})
	if err != nil {
		b.Fatal(err)
	}
	s.SetPoints(GenerateTestPoints(100000, Extent{MaxX: 10000, MaxY: 10000}, 42))
	view := Extent{MinX: 2000, MinY: 2000, MaxX: 4000, MaxY: 3000}
	s.RequestView(view, 5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if s.RequestView(view, 5) != ViewUnchanged {
			b.Fatal("expected unchanged view")
		}
	}
}
