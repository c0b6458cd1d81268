// Package evaluation drives the per-patient evaluation loop for each
// dataset partition: it fetches patient records, runs inference through
// the model collaborator, scores predicted masks against ground truth
// with the dice coefficient, renders representative slice overlays, and
// aggregates per-partition summary statistics.
package evaluation

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"path/filepath"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/ER-ALOK/BraTS18-Project/internal/models"
	"github.com/ER-ALOK/BraTS18-Project/pkg/metrics"
	"github.com/ER-ALOK/BraTS18-Project/pkg/sampling"
	"github.com/ER-ALOK/BraTS18-Project/pkg/visualization"
)

// Model is the inference collaborator: cropped input volume in,
// continuous-valued probability volume out. The subject ID accompanies
// the input so file-backed backends can key their lookup; the output
// must be shape-compatible with the identically cropped ground truth.
type Model interface {
	Predict(ctx context.Context, id string, input *models.Volume) (*models.Volume, error)
}

// Dataset is the patient-record collaborator. DropCache is invoked
// once per completed patient to bound peak memory; implementations
// must tolerate concurrent Patient calls when the evaluator runs with
// more than one worker.
type Dataset interface {
	Patient(ctx context.Context, id string) (*models.Patient, error)
	DropCache()
}

// Params holds the evaluation configuration, passed down explicitly
// from the top-level driver.
type Params struct {
	// OutputDir is where per-partition artifact directories are created
	OutputDir string

	// Threshold is the decision threshold for binarizing both masks
	Threshold float64

	// Smooth is the dice smoothing constant
	Smooth float64

	// CropLeading is the number of planes cropped from the leading edge
	// of the scan axis, for both the model input and the ground truth
	CropLeading int

	// ImagesPerPatient is how many slices to render per subject
	ImagesPerPatient int

	// SampleSeed seeds the per-patient slice sampler
	SampleSeed uint64

	// Workers bounds concurrent patient evaluation; values below 2
	// select the sequential path
	Workers int

	// ContinueOnError logs and skips failed patients instead of
	// aborting the partition
	ContinueOnError bool
}

// Report is the evaluation result for one partition: the per-patient
// score list in partition order (failed patients omitted when running
// with ContinueOnError) and the aggregate statistics.
type Report struct {
	Partition string
	Scores    []float64
	Summary   metrics.Summary
}

// Evaluator runs the evaluation pipeline over dataset partitions.
type Evaluator struct {
	model   Model
	dataset Dataset
	params  Params
	logger  *slog.Logger
}

// New creates an evaluator from its collaborators and parameters.
func New(model Model, dataset Dataset, params Params, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		model:   model,
		dataset: dataset,
		params:  params,
		logger:  logger,
	}
}

// EvaluateAll evaluates the test, validation and training partitions in
// that order and returns a report per partition name.
func (e *Evaluator) EvaluateAll(ctx context.Context, train, validation, test models.Partition) (map[string]*Report, error) {
	reports := make(map[string]*Report)
	for _, p := range []models.Partition{test, validation, train} {
		e.logger.Info("evaluating partition", "partition", p.Name, "patients", len(p.IDs))
		report, err := e.EvaluatePartition(ctx, p)
		if err != nil {
			return reports, err
		}
		reports[p.Name] = report
	}
	return reports, nil
}

// EvaluatePartition runs the per-patient loop for one partition and
// returns its report. A partition with zero patients is refused up
// front rather than summarized as NaN.
func (e *Evaluator) EvaluatePartition(ctx context.Context, p models.Partition) (*Report, error) {
	if len(p.IDs) == 0 {
		return nil, fmt.Errorf("partition %s: %w", p.Name, metrics.ErrEmptyInput)
	}

	composer, err := visualization.NewComposer(filepath.Join(e.params.OutputDir, p.Name))
	if err != nil {
		return nil, fmt.Errorf("partition %s: %w", p.Name, err)
	}

	scores := make([]float64, len(p.IDs))
	failed := make([]bool, len(p.IDs))

	if e.params.Workers > 1 {
		err = e.runParallel(ctx, p, composer, scores, failed)
	} else {
		err = e.runSequential(ctx, p, composer, scores, failed)
	}
	if err != nil {
		return nil, err
	}

	// Compact out skipped patients before aggregating
	kept := scores[:0]
	for i, s := range scores {
		if !failed[i] {
			kept = append(kept, s)
		}
	}

	summary, err := metrics.Summarize(kept)
	if err != nil {
		return nil, fmt.Errorf("partition %s: %w", p.Name, err)
	}

	e.logger.Info("partition evaluation complete",
		"partition", p.Name,
		"artifacts_dir", composer.OutputDir(),
		"patients", len(kept),
		"mean_dice", summary.Mean,
		"std_dice", summary.Std,
		"min_dice", summary.Min,
		"max_dice", summary.Max)

	return &Report{Partition: p.Name, Scores: kept, Summary: summary}, nil
}

func (e *Evaluator) runSequential(ctx context.Context, p models.Partition, composer *visualization.Composer, scores []float64, failed []bool) error {
	for i, id := range p.IDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		score, err := e.evaluatePatient(ctx, p.Name, id, composer)
		if err != nil {
			if e.params.ContinueOnError {
				e.logger.Warn("skipping patient after failure",
					"partition", p.Name, "patient", id, "error", err)
				failed[i] = true
				continue
			}
			return fmt.Errorf("patient %s in partition %s: %w", id, p.Name, err)
		}
		scores[i] = score
	}
	return nil
}

func (e *Evaluator) runParallel(ctx context.Context, p models.Partition, composer *visualization.Composer, scores []float64, failed []bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.params.Workers)

	for i, id := range p.IDs {
		g.Go(func() error {
			score, err := e.evaluatePatient(gctx, p.Name, id, composer)
			if err != nil {
				if e.params.ContinueOnError {
					e.logger.Warn("skipping patient after failure",
						"partition", p.Name, "patient", id, "error", err)
					failed[i] = true
					return nil
				}
				return fmt.Errorf("patient %s in partition %s: %w", id, p.Name, err)
			}
			// Disjoint index per task, no lock needed
			scores[i] = score
			return nil
		})
	}
	return g.Wait()
}

// evaluatePatient scores and visualizes a single patient: fetch, crop,
// inference, binarize, dice, weighted slice sampling, rendering. The
// dataset cache is dropped before returning so at most one patient per
// worker is resident.
func (e *Evaluator) evaluatePatient(ctx context.Context, partition, id string, composer *visualization.Composer) (float64, error) {
	patient, err := e.dataset.Patient(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch patient record: %w", err)
	}
	defer e.dataset.DropCache()

	// The same crop is applied to the model input and to the ground
	// truth; a differing crop would silently misalign every score.
	input := patient.Flair.CropLeading(e.params.CropLeading)
	truth := patient.Seg.CropLeading(e.params.CropLeading)

	pred, err := e.model.Predict(ctx, id, input)
	if err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}
	if !pred.SameShape(truth) {
		return 0, fmt.Errorf("%w: prediction %dx%dx%d vs cropped truth %dx%dx%d",
			metrics.ErrShapeMismatch,
			pred.Width, pred.Height, pred.Depth,
			truth.Width, truth.Height, truth.Depth)
	}

	predMask := metrics.Binarize(pred, e.params.Threshold)
	truthMask := metrics.Binarize(truth, e.params.Threshold)

	score, err := metrics.Dice(predMask, truthMask, e.params.Smooth)
	if err != nil {
		return 0, err
	}
	e.logger.Info("patient evaluated", "partition", partition, "patient", id, "dice", score)

	if err := e.renderSlices(input, truthMask, predMask, id, score, composer); err != nil {
		return 0, err
	}
	return score, nil
}

// renderSlices draws the sampled comparison figures for one patient.
// A patient whose ground truth contains no tumor gets no figures.
func (e *Evaluator) renderSlices(input, truthMask, predMask *models.Volume, id string, score float64, composer *visualization.Composer) error {
	extent := sampling.TumorSlices(truthMask)
	weights := sampling.TumorWeights(truthMask, extent)

	chosen, err := sampling.SampleSlices(extent, weights, e.params.ImagesPerPatient, rand.NewSource(e.patientSeed(id)))
	if err != nil {
		return fmt.Errorf("slice sampling failed: %w", err)
	}

	for _, z := range chosen {
		_, err := composer.Render(input.PlaneAt(z), truthMask.PlaneAt(z), predMask.PlaneAt(z), id, score, z)
		if err != nil {
			return fmt.Errorf("failed to render slice %d: %w", z, err)
		}
	}
	return nil
}

// patientSeed derives a deterministic per-patient sampler seed from the
// configured seed and the patient ID, so slice selection is stable
// regardless of evaluation order or worker count.
func (e *Evaluator) patientSeed(id string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return e.params.SampleSeed ^ h.Sum64()
}
