// Command sonido-pitch estimates the pitch of a short mono clip.
//
// Usage:
//
//	sonido-pitch [flags] -samples clip.f32
//	sonido-pitch [flags] -predictions output.json
//
// -samples reads raw little-endian float32 samples at 16 kHz and runs them
// through a predictor backend. "reference" is always available; "tflite"
// needs cgo, the TensorFlow Lite C library and the tflite build tag, and
// becomes the default when compiled in. -predictions reads a JSON document
// {"pitch": [...], "uncertainty": [...]} and only runs the post-processing.
//
// Every flag defaults to the matching SONIDO_PITCH_* environment variable,
// e.g. SONIDO_PITCH_MODEL_PATH or SONIDO_PITCH_CONFIDENCE_THRESHOLD.
package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/RyanBlaney/sonido-pitch/algorithms/chroma"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spice"
	"github.com/RyanBlaney/sonido-pitch/estimator"
	"github.com/RyanBlaney/sonido-pitch/estimator/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/predictor"
)

// backendFactory builds a predictor and the function releasing it.
type backendFactory func(opts options, logger logging.Logger) (predictor.Predictor, func(), error)

// backends holds the predictor backends compiled into this binary. Optional
// backends register themselves from build-tagged files.
var backends = map[string]backendFactory{
	predictor.ReferenceBackend: newReferencePredictor,
}

// defaultBackend is used when neither -backend nor SONIDO_PITCH_BACKEND is set.
var defaultBackend = predictor.ReferenceBackend

type options struct {
	samplesPath     string
	predictionsPath string
	backend         string
	modelPath       string
	threads         int
	threshold       float64
	strict          bool
	notes           bool
	logLevel        string
}

// predictions is the -predictions input. Values are decoded as float64 so
// that thresholds such as 0.1 compare exactly as written.
type predictions struct {
	Pitch       []float64 `json:"pitch"`
	Uncertainty []float64 `json:"uncertainty"`
}

// report is the JSON document written to stdout
type report struct {
	Frames       int       `json:"frames"`
	VoicedFrames int       `json:"voiced_frames"`
	Hz           []float64 `json:"hz"`
	IdealOffset  *float64  `json:"ideal_offset"`
	OffsetCents  *float64  `json:"offset_cents,omitempty"`
	Notes        []string  `json:"notes,omitempty"`
	PredictMs    int64     `json:"predict_ms,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "sonido-pitch: %v\n", err)
		os.Exit(1)
	}
}

func parseOptions(args []string, env envConfig) (options, error) {
	var opts options

	backend := env.Backend
	if backend == "" {
		backend = defaultBackend
	}

	fs := flag.NewFlagSet("sonido-pitch", flag.ContinueOnError)
	fs.StringVar(&opts.samplesPath, "samples", "", "raw little-endian float32 samples at 16 kHz")
	fs.StringVar(&opts.predictionsPath, "predictions", "", "JSON predictor output to post-process")
	fs.StringVar(&opts.backend, "backend", backend, "predictor backend: "+strings.Join(backendNames(), " or "))
	fs.StringVar(&opts.modelPath, "model", env.ModelPath, "path to the SPICE .tflite model")
	fs.IntVar(&opts.threads, "threads", env.Threads, "interpreter threads")
	fs.Float64Var(&opts.threshold, "threshold", env.ConfidenceThreshold, "minimum confidence (1 - uncertainty)")
	fs.BoolVar(&opts.strict, "strict", env.StrictRange, "reject normalized pitches outside [0,1]")
	fs.BoolVar(&opts.notes, "notes", env.Notes, "print offset-corrected note names")
	fs.StringVar(&opts.logLevel, "log-level", env.LogLevel, "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if (opts.samplesPath == "") == (opts.predictionsPath == "") {
		return opts, errors.New("exactly one of -samples or -predictions is required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	env, err := loadEnvConfig()
	if err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	opts, err := parseOptions(args, env)
	if err != nil {
		return err
	}

	logger, err := logging.NewZapProductionLogger(logging.ParseLevel(opts.logLevel))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	logging.SetGlobalLogger(logger)

	cfg := config.DefaultConfig()
	cfg.Pipeline.ConfidenceThreshold = opts.threshold
	cfg.Pipeline.StrictRange = opts.strict
	cfg.IncludeNotes = opts.notes

	var rep *report
	if opts.predictionsPath != "" {
		rep, err = postProcess(opts.predictionsPath, cfg, logger)
	} else {
		rep, err = estimate(ctx, opts, cfg, logger)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func estimate(ctx context.Context, opts options, cfg *config.Config, logger logging.Logger) (*report, error) {
	samples, err := readSamples(opts.samplesPath)
	if err != nil {
		return nil, err
	}

	p, closeFn, err := newPredictor(opts, logger)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	est, err := estimator.New(p, cfg, logger)
	if err != nil {
		return nil, err
	}

	ctx = logging.ContextWithFields(ctx, logging.Fields{
		"clip":    opts.samplesPath,
		"backend": opts.backend,
	})

	result, err := est.Execute(ctx, samples)
	if err != nil {
		return nil, err
	}

	rep := newReport(&result.Result, result.Notes)
	rep.PredictMs = result.PredictTime.Milliseconds()
	return rep, nil
}

func postProcess(path string, cfg *config.Config, logger logging.Logger) (*report, error) {
	in, err := readPredictions(path)
	if err != nil {
		return nil, err
	}

	pipeline, err := spice.NewPipeline(cfg.Pipeline, logger)
	if err != nil {
		return nil, err
	}

	result, err := pipeline.Execute(in.Pitch, in.Uncertainty)
	if err != nil {
		return nil, err
	}

	var notes []chroma.Note
	if cfg.IncludeNotes {
		offset := 0.0
		if result.Offset != nil {
			offset = result.Offset.Mean
		}
		notes = chroma.NoteSequence(result.Hz, offset)
	}
	return newReport(result, notes), nil
}

func newPredictor(opts options, logger logging.Logger) (predictor.Predictor, func(), error) {
	factory, ok := backends[opts.backend]
	if !ok {
		return nil, nil, fmt.Errorf("unknown backend %q (available: %s)",
			opts.backend, strings.Join(backendNames(), ", "))
	}
	return factory(opts, logger)
}

func newReferencePredictor(_ options, logger logging.Logger) (predictor.Predictor, func(), error) {
	p, err := predictor.NewReference(logger)
	if err != nil {
		return nil, nil, err
	}
	return p, func() {}, nil
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newReport(res *spice.Result, notes []chroma.Note) *report {
	rep := &report{
		Frames:       len(res.Hz),
		VoicedFrames: res.VoicedFrames(),
		Hz:           res.Hz,
	}
	if res.HasOffset() {
		mean, cents := res.Offset.Mean, res.Offset.Cents()
		rep.IdealOffset = &mean
		rep.OffsetCents = &cents
	}
	for _, n := range notes {
		rep.Notes = append(rep.Notes, n.String())
	}
	return rep
}

func readSamples(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size()%4 != 0 {
		return nil, fmt.Errorf("%s: size %d is not a multiple of 4 bytes", path, info.Size())
	}

	samples := make([]float32, info.Size()/4)
	if err := binary.Read(f, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to read samples from %s: %w", path, err)
	}
	return samples, nil
}

func readPredictions(path string) (*predictions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var in predictions
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to decode predictions from %s: %w", path, err)
	}
	return &in, nil
}
