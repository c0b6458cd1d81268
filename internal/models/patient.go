package models

// Patient holds one subject's imaging data: an identifier, the FLAIR
// modality volume used as model input, and the ground-truth tumor
// segmentation. Records are fetched one at a time by the evaluator and
// released before the next fetch to bound peak memory.
type Patient struct {
	// ID is the subject identifier within the cohort
	ID string

	// Flair is the FLAIR modality volume
	Flair *Volume

	// Seg is the ground-truth tumor segmentation mask
	Seg *Volume
}

// Partition is a named, ordered subset of the patient cohort.
// Membership is fixed for the duration of an evaluation run.
type Partition struct {
	// Name identifies the partition (train, validation or test)
	Name string

	// IDs lists the member patient identifiers in evaluation order
	IDs []string
}
