package repository

// ScanPolicy bounds the backward availability scan. The scan walks weeks in
// batches and stops on gaps; it may miss data behind a long enough gap.
type ScanPolicy struct {
	BatchSize           int
	MaxConsecutiveEmpty int
}

func DefaultScanPolicy() ScanPolicy {
	return ScanPolicy{BatchSize: 6, MaxConsecutiveEmpty: 3}
}

// StopScan ends the whole scan on the first empty week when nothing has been
// found yet.
func (p ScanPolicy) StopScan(consecutiveEmpty, found int) bool {
	return found == 0 && consecutiveEmpty > 0
}

// StopBatch ends the current batch after a run of empty weeks.
func (p ScanPolicy) StopBatch(consecutiveEmpty int) bool {
	return consecutiveEmpty >= p.MaxConsecutiveEmpty
}

// StopAfterBatch ends the scan when a batch found nothing after earlier hits.
func (p ScanPolicy) StopAfterBatch(batchHits, found int) bool {
	return batchHits == 0 && found > 0
}
