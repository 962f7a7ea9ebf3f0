package threads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixFromPoints(points []float64) [][]float64 {
	n := len(points)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			d := points[i] - points[j]
			if d < 0 {
				d = -d
			}
			dist[i][j] = d
		}
	}
	return dist
}

func TestDBSCANTwoClustersAndNoise(t *testing.T) {
	// Two tight groups on a line plus one outlier.
	points := []float64{0.0, 0.1, 0.2, 5.0, 5.1, 9.0}
	labels := dbscan(matrixFromPoints(points), 0.3, 2)

	require.Len(t, labels, 6)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[1], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.NotEqual(t, labels[0], labels[3])
	assert.Equal(t, -1, labels[5], "outlier must be labeled noise")
}

func TestDBSCANAllNoise(t *testing.T) {
	points := []float64{0, 10, 20}
	labels := dbscan(matrixFromPoints(points), 0.5, 2)
	assert.Equal(t, []int{-1, -1, -1}, labels)
}

func TestDBSCANSingleCluster(t *testing.T) {
	points := []float64{0, 0.1, 0.2, 0.3}
	labels := dbscan(matrixFromPoints(points), 0.5, 2)
	for _, l := range labels {
		assert.Equal(t, 0, l)
	}
}

func TestDBSCANEmpty(t *testing.T) {
	assert.Empty(t, dbscan(nil, 0.3, 2))
}

func TestDBSCANChainReachability(t *testing.T) {
	// Each point is within eps of its neighbor; density chains join them.
	points := []float64{0, 0.25, 0.5, 0.75}
	labels := dbscan(matrixFromPoints(points), 0.3, 2)
	for _, l := range labels {
		assert.Equal(t, labels[0], l)
	}
}
