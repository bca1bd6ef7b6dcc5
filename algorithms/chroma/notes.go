package chroma

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/spice"
)

var pitchClassNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is a frame's pitch snapped to the equal-tempered grid
type Note struct {
	Hz       float64 `json:"hz"`
	Semitone int     `json:"semitone"` // semitones above C0
	Class    int     `json:"class"`    // 0=C ... 11=B
	Octave   int     `json:"octave"`
	Name     string  `json:"name"`  // e.g. "A4"
	Cents    float64 `json:"cents"` // residual after offset correction, in cents
	Rest     bool    `json:"rest"`
}

// String returns the note name, or "-" for rests
func (n Note) String() string {
	if n.Rest {
		return "-"
	}
	return n.Name
}

// QuantizeNote snaps hz to the nearest note after removing the singer's
// average offset (in semitones). Non-positive hz yields a rest and false.
func QuantizeNote(hz, offset float64) (Note, bool) {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return Note{Rest: true}, false
	}

	s := spice.SemitonesFromC0(hz) - offset
	n := int(math.Ceil(s - 0.5))

	class := ((n % 12) + 12) % 12
	octave := (n - class) / 12

	return Note{
		Hz:       hz,
		Semitone: n,
		Class:    class,
		Octave:   octave,
		Name:     fmt.Sprintf("%s%d", pitchClassNames[class], octave),
		Cents:    (s - float64(n)) * 100,
	}, true
}

// NoteSequence quantizes every frame, keeping order. Frames without a
// confident pitch become rests.
func NoteSequence(hz []float64, offset float64) []Note {
	notes := make([]Note, len(hz))
	for i, h := range hz {
		notes[i], _ = QuantizeNote(h, offset)
	}
	return notes
}
