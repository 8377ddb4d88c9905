package series

// Ticks picks the labels used as axis tick marks. Hour keeps every 10th point,
// Day24 every 8th (two hours at 15-minute spacing) and Week all of them; the most
// recent label is always included.
func Ticks(period Period, readings []Reading) []string {
	indices := TickIndices(period, len(readings))
	ticks := make([]string, len(indices))
	for i, idx := range indices {
		ticks[i] = readings[idx].Label
	}
	return ticks
}

// TickIndices is Ticks expressed as positions in a series of length n
func TickIndices(period Period, n int) []int {
	spec, err := Lookup(period)
	if err != nil || n <= 0 {
		return []int{}
	}
	indices := make([]int, 0, n/spec.TickEvery+1)
	for i := 0; i < n; i++ {
		if i%spec.TickEvery == 0 || i == n-1 {
			indices = append(indices, i)
		}
	}
	return indices
}
