// Package tflite runs a SPICE pitch model through the TensorFlow Lite C API.
//
// The package links against libtensorflowlite_c through cgo and is only
// compiled with the tflite build tag:
//
//	go build -tags tflite ./...
package tflite
