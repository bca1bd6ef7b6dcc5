//go:build tflite

package main

import (
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/predictor"
	"github.com/RyanBlaney/sonido-pitch/predictor/tflite"
)

func init() {
	backends[tflite.Backend] = newTFLitePredictor
	defaultBackend = tflite.Backend
}

func newTFLitePredictor(opts options, logger logging.Logger) (predictor.Predictor, func(), error) {
	p, err := tflite.New(tflite.Options{ModelPath: opts.modelPath, Threads: opts.threads}, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, func() { p.Close() }, nil
}
