package pipeline

// GenerateBatches partitions the inclusive ID range [cutoffID, maxID] into
// descending fixed-size chunks, newest first. The final chunk may be
// shorter. Pure function: the concatenated output is exactly the sequence
// maxID, maxID-1, ..., cutoffID.
func GenerateBatches(maxID, cutoffID int64, batchSize int) [][]int64 {
	var batches [][]int64
	if batchSize <= 0 || maxID < cutoffID {
		return batches
	}

	current := maxID
	for current >= cutoffID {
		end := current - int64(batchSize) + 1
		if end < cutoffID {
			end = cutoffID
		}

		batch := make([]int64, 0, current-end+1)
		for id := current; id >= end; id-- {
			batch = append(batch, id)
		}

		batches = append(batches, batch)
		current = end - 1
	}
	return batches
}
