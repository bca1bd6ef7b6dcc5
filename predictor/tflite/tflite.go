//go:build tflite

package tflite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/predictor"
	"github.com/mattn/go-tflite"
)

// Backend is the backend name reported in predictor errors.
const Backend = "tflite"

const (
	pitchOutput       = 0
	uncertaintyOutput = 1
)

// Options configures the interpreter.
type Options struct {
	ModelPath string `json:"model_path"`
	Threads   int    `json:"threads"`
}

// DefaultOptions returns options for the stock SPICE model file.
func DefaultOptions() Options {
	return Options{
		ModelPath: "lite-model_spice_1.tflite",
		Threads:   4,
	}
}

// Predictor owns one interpreter. Calls are serialized.
type Predictor struct {
	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	logger      logging.Logger

	// messages from the interpreter error reporter, reset on every call
	reported []string
}

// New loads the model and builds an interpreter.
func New(opts Options, logger logging.Logger) (*Predictor, error) {
	logger = logging.OrGlobal(logger, "tflite_predictor")

	model := tflite.NewModelFromFile(opts.ModelPath)
	if model == nil {
		return nil, predictor.Wrap(Backend, fmt.Errorf("cannot load model %q", opts.ModelPath))
	}

	p := &Predictor{model: model, logger: logger}

	p.options = tflite.NewInterpreterOptions()
	if opts.Threads > 0 {
		p.options.SetNumThread(opts.Threads)
	}
	p.options.SetErrorReporter(func(msg string, _ any) {
		p.reported = append(p.reported, msg)
	}, nil)

	p.interpreter = tflite.NewInterpreter(p.model, p.options)
	if p.interpreter == nil {
		p.options.Delete()
		p.model.Delete()
		return nil, predictor.Wrap(Backend, errors.New("cannot create interpreter"))
	}

	logger.Info("TFLite pitch model loaded", logging.Fields{
		"model":   opts.ModelPath,
		"threads": opts.Threads,
		"outputs": p.interpreter.GetOutputTensorCount(),
	})

	return p, nil
}

// Predict implements predictor.Predictor.
func (p *Predictor) Predict(ctx context.Context, samples []float32) (*predictor.Output, error) {
	if len(samples) == 0 {
		return nil, predictor.Wrap(Backend, predictor.ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, predictor.Wrap(Backend, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interpreter == nil {
		return nil, predictor.Wrap(Backend, errors.New("predictor closed"))
	}

	start := time.Now()
	p.reported = p.reported[:0]

	if status := p.interpreter.ResizeInputTensor(0, []int32{int32(len(samples))}); status != tflite.OK {
		return nil, p.fail("resize input tensor", status)
	}
	if status := p.interpreter.AllocateTensors(); status != tflite.OK {
		return nil, p.fail("allocate tensors", status)
	}

	input := p.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, predictor.Wrap(Backend, errors.New("model has no input tensor"))
	}
	if n := copy(input.Float32s(), samples); n != len(samples) {
		return nil, predictor.Wrap(Backend, fmt.Errorf("input tensor holds %d of %d samples", n, len(samples)))
	}

	if status := p.interpreter.Invoke(); status != tflite.OK {
		return nil, p.fail("invoke", status)
	}

	if p.interpreter.GetOutputTensorCount() < 2 {
		return nil, predictor.Wrap(Backend, fmt.Errorf("%w: model has %d outputs, want 2",
			predictor.ErrOutputShape, p.interpreter.GetOutputTensorCount()))
	}

	out := &predictor.Output{
		Pitch:       cloneFloats(p.interpreter.GetOutputTensor(pitchOutput).Float32s()),
		Uncertainty: cloneFloats(p.interpreter.GetOutputTensor(uncertaintyOutput).Float32s()),
	}

	if err := predictor.CheckOutput(out, len(samples)); err != nil {
		return nil, predictor.Wrap(Backend, err)
	}

	p.logger.Debug("TFLite inference completed", logging.Fields{
		"samples":    len(samples),
		"frames":     len(out.Pitch),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	return out, nil
}

func (p *Predictor) fail(step string, status tflite.Status) error {
	err := fmt.Errorf("%s: status %v", step, status)
	if len(p.reported) > 0 {
		err = fmt.Errorf("%w: %s", err, p.reported[len(p.reported)-1])
	}
	p.logger.Error(err, "TFLite inference failed")
	return predictor.Wrap(Backend, err)
}

// Close releases the interpreter, options and model.
func (p *Predictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interpreter != nil {
		p.interpreter.Delete()
		p.interpreter = nil
	}
	if p.options != nil {
		p.options.Delete()
		p.options = nil
	}
	if p.model != nil {
		p.model.Delete()
		p.model = nil
	}
	return nil
}

// Output tensors are owned by the interpreter and reused across calls.
func cloneFloats(src []float32) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
