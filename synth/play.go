package synth

import (
	"fmt"

	"github.com/keisili/beepbox"
)

// RenderSong renders one full pass of the song, without looping, and
// returns the stereo buffer. The seed fixes the engine's random source so
// the result is reproducible.
func RenderSong(song *beepbox.Song, sampleRate int, seed uint32) (beepbox.AudioBuffer, error) {
	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("invalid song: %w", err)
	}
	s := NewSynth(song, sampleRate)
	s.SetRandSeed(seed)
	// render the whole bar range once through
	loopStart, loopLength := song.LoopStart, song.LoopLength
	song.LoopStart, song.LoopLength = 0, song.BarCount
	defer func() { song.LoopStart, song.LoopLength = loopStart, loopLength }()

	s.Play()
	samplesPerBar := int(s.SamplesPerTick() * float64(s.ticksPerBar()))
	total := samplesPerBar * song.BarCount
	buffer := make(beepbox.AudioBuffer, total)
	const chunkSize = 4096
	for pos := 0; pos < total; pos += chunkSize {
		end := pos + chunkSize
		if end > total {
			end = total
		}
		if err := s.Render(buffer[pos:end]); err != nil {
			return nil, err
		}
	}
	return buffer, nil
}
