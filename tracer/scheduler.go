package tracer

// A batch is a contiguous span of pixels that runs through the full bounce
// loop before the next span starts. No ray dependency exists across batches.
type Batch struct {
	Offset uint32
	Count  uint32
}

// The BatchScheduler interface is implemented by all batch slicing
// strategies.
type BatchScheduler interface {
	// Split the frame's pixel count into batches.
	Schedule(pixelCount uint32) []Batch
}

// The fixed scheduler slices the frame into equally sized batches capped at
// the queue capacity. The last batch carries the remainder.
type fixedScheduler struct {
	batchSize uint32
}

// Create a scheduler that slices frames into batches of at most batchSize
// pixels.
func NewFixedScheduler(batchSize uint32) BatchScheduler {
	return &fixedScheduler{batchSize: batchSize}
}

func (sch *fixedScheduler) Schedule(pixelCount uint32) []Batch {
	if pixelCount == 0 {
		return nil
	}

	batches := make([]Batch, 0, (pixelCount+sch.batchSize-1)/sch.batchSize)
	var offset uint32
	for offset < pixelCount {
		count := pixelCount - offset
		if count > sch.batchSize {
			count = sch.batchSize
		}
		batches = append(batches, Batch{Offset: offset, Count: count})
		offset += count
	}
	return batches
}
