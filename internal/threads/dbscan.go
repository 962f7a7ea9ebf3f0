package threads

// dbscan runs density-based clustering over a precomputed distance matrix.
// It returns one label per point; noise points that never joined a dense
// group get label -1.
func dbscan(dist [][]float64, eps float64, minPoints int) []int {
	n := len(dist)
	const (
		unvisited = -2
		noise     = -1
	)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	neighbors := func(p int) []int {
		var nbs []int
		for q := 0; q < n; q++ {
			if dist[p][q] <= eps {
				nbs = append(nbs, q)
			}
		}
		return nbs
	}

	cluster := 0
	for p := 0; p < n; p++ {
		if labels[p] != unvisited {
			continue
		}
		nbs := neighbors(p)
		if len(nbs) < minPoints {
			labels[p] = noise
			continue
		}
		labels[p] = cluster

		// Expand the cluster through every density-reachable point.
		queue := append([]int(nil), nbs...)
		for i := 0; i < len(queue); i++ {
			q := queue[i]
			if labels[q] == noise {
				labels[q] = cluster
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = cluster
			qnbs := neighbors(q)
			if len(qnbs) >= minPoints {
				queue = append(queue, qnbs...)
			}
		}
		cluster++
	}
	return labels
}
