// Package oto binds the engine's audio interfaces to the ebitengine/oto/v3
// device layer.
package oto

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ebitengine/oto/v3"

	"github.com/keisili/beepbox"
)

type (
	OtoContext struct {
		context    *oto.Context
		sampleRate int
	}

	OtoOutput struct {
		player    *oto.Player
		feed      chan []byte
		current   []byte
		tmpBuffer []byte
	}
)

// NewContext initializes the audio device at the given sample rate with
// stereo float32 output.
func NewContext(sampleRate int) (*OtoContext, error) {
	if sampleRate <= 0 {
		sampleRate = beepbox.DefaultSampleRate
	}
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	context, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, sampleRate: sampleRate}, nil
}

func (c *OtoContext) Output() beepbox.AudioSink {
	out := &OtoOutput{feed: make(chan []byte, 4)}
	out.player = c.context.NewPlayer(out)
	out.player.Play()
	return out
}

func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// WriteAudio queues a stereo buffer for the device. The buffer is converted
// to the little-endian float32 byte layout oto expects; the conversion
// buffer is reused between calls.
func (o *OtoOutput) WriteAudio(buffer beepbox.AudioBuffer) error {
	o.tmpBuffer = o.tmpBuffer[:0]
	for _, s := range buffer {
		o.tmpBuffer = binary.LittleEndian.AppendUint32(o.tmpBuffer, math.Float32bits(s[0]))
		o.tmpBuffer = binary.LittleEndian.AppendUint32(o.tmpBuffer, math.Float32bits(s[1]))
	}
	chunk := make([]byte, len(o.tmpBuffer))
	copy(chunk, o.tmpBuffer)
	o.feed <- chunk
	return nil
}

// Read feeds the device from the queued chunks; the device pulls on its own
// schedule.
func (o *OtoOutput) Read(p []byte) (int, error) {
	if len(o.current) == 0 {
		select {
		case o.current = <-o.feed:
		default:
			for i := range p {
				p[i] = 0
			}
			return len(p), nil
		}
	}
	n := copy(p, o.current)
	o.current = o.current[n:]
	return n, nil
}

func (o *OtoOutput) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
