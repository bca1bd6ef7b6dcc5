package main

import (
	"github.com/kelseyhightower/envconfig"
)

// envConfig is read from SONIDO_PITCH_* variables; flags override it. An
// empty Backend selects defaultBackend.
type envConfig struct {
	Backend             string
	ModelPath           string  `split_words:"true" default:"lite-model_spice_1.tflite"`
	Threads             int     `default:"4"`
	ConfidenceThreshold float64 `split_words:"true" default:"0.9"`
	StrictRange         bool    `split_words:"true"`
	Notes               bool    `default:"false"`
	LogLevel            string  `split_words:"true" default:"info"`
}

func loadEnvConfig() (envConfig, error) {
	var cfg envConfig
	err := envconfig.Process("sonido_pitch", &cfg)
	return cfg, err
}
