package estimator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-pitch/algorithms/spice"
	"github.com/RyanBlaney/sonido-pitch/estimator/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/predictor"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLogger() (logging.Logger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return logging.NewZapLogger(zap.New(core).Sugar()), recorded
}

func sine(freq float64, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/predictor.SampleRate))
	}
	return samples
}

// constant returns a predictor emitting the same frame for every hop.
func constant(pitch, uncertainty float32) predictor.Predictor {
	return predictor.Func(func(_ context.Context, samples []float32) (*predictor.Output, error) {
		n := predictor.FrameCount(len(samples))
		out := &predictor.Output{Pitch: make([]float32, n), Uncertainty: make([]float32, n)}
		for i := range n {
			out.Pitch[i] = pitch
			out.Uncertainty[i] = uncertainty
		}
		return out, nil
	})
}

func TestExecuteWithReferencePredictor(t *testing.T) {
	ref, err := predictor.NewReference(&logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("NewReference() error = %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.IncludeNotes = true

	logger, recorded := newTestLogger()
	est, err := New(ref, cfg, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := est.Execute(context.Background(), sine(440, predictor.ReferenceInputSize))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Frames != 63 || len(result.Hz) != 63 {
		t.Fatalf("Frames = %d, len(Hz) = %d, want 63", result.Frames, len(result.Hz))
	}
	if voiced := result.VoicedFrames(); voiced < 59 {
		t.Fatalf("VoicedFrames() = %d, want at least 59", voiced)
	}

	for i, h := range result.Hz {
		if h != 0 && math.Abs(h-440) > 3 {
			t.Fatalf("Hz[%d] = %v, want about 440", i, h)
		}
	}

	offset, ok := result.IdealOffset()
	if !ok {
		t.Fatal("expected an ideal offset")
	}
	if math.Abs(offset) > 0.05 {
		t.Fatalf("IdealOffset() = %v, want about 0", offset)
	}

	if len(result.Notes) != 63 {
		t.Fatalf("len(Notes) = %d, want 63", len(result.Notes))
	}
	for i, note := range result.Notes {
		if result.Hz[i] == 0 {
			if !note.Rest {
				t.Fatalf("Notes[%d] = %+v, want rest", i, note)
			}
			continue
		}
		if note.Name != "A4" {
			t.Fatalf("Notes[%d] = %s, want A4", i, note.Name)
		}
	}

	if recorded.FilterMessage("Pitch estimated").Len() != 1 {
		t.Fatalf("expected one 'Pitch estimated' entry, got %v", recorded.All())
	}
}

func TestExecuteKnownFrames(t *testing.T) {
	est, err := New(constant(0.5, 0.05), nil, &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := est.Execute(context.Background(), make([]float32, 16000))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Hz) != 33 {
		t.Fatalf("len(Hz) = %d, want 33", len(result.Hz))
	}
	for i, h := range result.Hz {
		if math.Abs(h-270.8802553720579) > 1e-4 {
			t.Fatalf("Hz[%d] = %v, want 270.88", i, h)
		}
	}

	offset, ok := result.IdealOffset()
	if !ok || math.Abs(offset-spice.HzToOffset(result.Hz[0])) > 1e-9 {
		t.Fatalf("IdealOffset() = %v, %v", offset, ok)
	}
	if result.Notes != nil {
		t.Fatal("Notes should be empty unless requested")
	}
}

func TestExecuteNoConfidentFrames(t *testing.T) {
	logger, recorded := newTestLogger()
	est, _ := New(constant(0.6, 1), nil, logger)

	result, err := est.Execute(context.Background(), make([]float32, predictor.ReferenceInputSize))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for i, h := range result.Hz {
		if h != 0 {
			t.Fatalf("Hz[%d] = %v, want 0", i, h)
		}
	}
	if _, ok := result.IdealOffset(); ok || result.Offset != nil {
		t.Fatalf("Offset = %+v, want no data", result.Offset)
	}
	if recorded.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Fatalf("expected a warning for a clip without confident frames")
	}
}

func TestExecutePredictorFailure(t *testing.T) {
	cause := errors.New("interpreter crashed")
	failing := predictor.Func(func(context.Context, []float32) (*predictor.Output, error) {
		return nil, cause
	})

	logger, recorded := newTestLogger()
	est, _ := New(failing, nil, logger)

	result, err := est.Execute(context.Background(), make([]float32, 32000))
	if !errors.Is(err, predictor.ErrPredictorFailure) || !errors.Is(err, cause) {
		t.Fatalf("Execute() error = %v, want predictor failure wrapping cause", err)
	}
	if result != nil {
		t.Fatal("Execute() returned a result after predictor failure")
	}
	if recorded.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Fatal("expected the failure to be logged")
	}
}

func TestExecuteShapeMismatch(t *testing.T) {
	unpaired := predictor.Func(func(context.Context, []float32) (*predictor.Output, error) {
		return &predictor.Output{Pitch: make([]float32, 10), Uncertainty: make([]float32, 9)}, nil
	})

	for _, validate := range []bool{true, false} {
		cfg := config.DefaultConfig()
		cfg.ValidateOutputShape = validate
		est, _ := New(unpaired, cfg, &logging.NoOpLogger{})

		result, err := est.Execute(context.Background(), make([]float32, 4608))
		if !errors.Is(err, spice.ErrShapeMismatch) {
			t.Fatalf("validate=%v: Execute() error = %v, want ErrShapeMismatch", validate, err)
		}
		if result != nil {
			t.Fatalf("validate=%v: Execute() returned a partial result", validate)
		}
	}
}

func TestExecuteWrongFrameCount(t *testing.T) {
	short := predictor.Func(func(context.Context, []float32) (*predictor.Output, error) {
		return &predictor.Output{Pitch: make([]float32, 5), Uncertainty: make([]float32, 5)}, nil
	})

	est, _ := New(short, nil, &logging.NoOpLogger{})
	_, err := est.Execute(context.Background(), make([]float32, 32000))
	if !errors.Is(err, predictor.ErrOutputShape) || !errors.Is(err, predictor.ErrPredictorFailure) {
		t.Fatalf("Execute() error = %v, want ErrOutputShape predictor failure", err)
	}

	cfg := config.DefaultConfig()
	cfg.ValidateOutputShape = false
	lenient, _ := New(short, cfg, &logging.NoOpLogger{})
	result, err := lenient.Execute(context.Background(), make([]float32, 32000))
	if err != nil {
		t.Fatalf("Execute() without shape validation error = %v", err)
	}
	if result.Frames != 5 {
		t.Fatalf("Frames = %d, want 5", result.Frames)
	}
}

func TestExecuteCancelled(t *testing.T) {
	called := false
	p := predictor.Func(func(context.Context, []float32) (*predictor.Output, error) {
		called = true
		return nil, nil
	})

	est, _ := New(p, nil, &logging.NoOpLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := est.Execute(ctx, make([]float32, 512)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if called {
		t.Fatal("predictor called with a cancelled context")
	}
}

func TestExecuteCancelledDuringPrediction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := constant(0.5, 0.05)
	p := predictor.Func(func(ctx context.Context, samples []float32) (*predictor.Output, error) {
		cancel()
		return inner.Predict(ctx, samples)
	})

	logger, recorded := newTestLogger()
	est, _ := New(p, nil, logger)

	result, err := est.Execute(ctx, make([]float32, 16000))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if result != nil {
		t.Fatalf("Execute() result = %+v, want nil", result)
	}
	if recorded.FilterMessage("Pitch estimated").Len() != 0 {
		t.Fatal("cancelled clip should not be reported as estimated")
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(nil, nil, nil); err == nil {
		t.Fatal("New(nil predictor) expected error")
	}

	cfg := config.DefaultConfig()
	cfg.Pipeline.ConfidenceThreshold = 1.5
	if _, err := New(constant(0.5, 0), cfg, nil); err == nil {
		t.Fatal("New() accepted an invalid threshold")
	}
}
