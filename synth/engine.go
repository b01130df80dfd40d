package synth

import (
	"fmt"
	"math"

	"github.com/keisili/beepbox"
)

const liveInputDeadlineSeconds = 10.0

type (
	// Synth renders a Song into stereo buffers. It is single-threaded: the
	// host drives it one Render call at a time and all state belongs to the
	// engine for the duration of a call.
	Synth struct {
		Song       *beepbox.Song
		SampleRate int
		// Volume scales the final limiter output.
		Volume float64

		rand  *Rand
		waves *waveBank

		playing             bool
		bar                 int
		tick                int // within the bar
		tickSampleCountdown float64
		startOfTick         bool
		totalTicks          int
		totalSamples        int

		channels []*channelState
		tonePool []*Tone
		tempMono []float32

		limit float64

		liveInputChannel  int
		liveInputPitches  []int
		liveInputDeadline int // samples until the audio source may sleep
	}

	channelState struct {
		instruments       []*instrumentState
		currentInstrument int
	}
)

// NewSynth creates an engine for the song. The random source defaults to a
// fixed seed so renders are reproducible; see SetRandSeed.
func NewSynth(song *beepbox.Song, sampleRate int) *Synth {
	if sampleRate <= 0 {
		sampleRate = beepbox.DefaultSampleRate
	}
	return &Synth{
		Song:       song,
		SampleRate: sampleRate,
		Volume:     1.0,
		rand:       NewRand(1),
		waves:      newWaveBank(),
	}
}

// SetRandSeed reseeds the generator behind guitar pluck jitter and
// spectrum phase randomization.
func (s *Synth) SetRandSeed(seed uint32) {
	s.rand = NewRand(seed)
}

func (s *Synth) Play() {
	s.playing = true
}

func (s *Synth) Pause() {
	s.playing = false
}

func (s *Synth) Playing() bool {
	return s.playing
}

// SnapToBar moves the playhead to the start of the given bar.
func (s *Synth) SnapToBar(bar int) {
	s.bar = clampInt(bar, 0, s.Song.BarCount-1)
	s.tick = 0
	s.tickSampleCountdown = 0
	s.startOfTick = true
}

// MaintainLiveInput arms the live-input deadline; the audio source should
// stay active until it expires with no song playing.
func (s *Synth) MaintainLiveInput() {
	s.liveInputDeadline = int(liveInputDeadlineSeconds * float64(s.SampleRate))
}

// SetLiveInputPitches sets the pitches held by live input on a channel.
// Passing an empty slice releases them.
func (s *Synth) SetLiveInputPitches(channel int, pitches []int) {
	s.liveInputChannel = clampInt(channel, 0, s.Song.ChannelCount()-1)
	s.liveInputPitches = append(s.liveInputPitches[:0], pitches...)
	s.MaintainLiveInput()
}

// WantsAudio reports whether the host should keep the audio source active.
func (s *Synth) WantsAudio() bool {
	return s.playing || s.liveInputDeadline > 0
}

// SamplesPerTick returns the (fractional) sample length of one tick at the
// song's tempo.
func (s *Synth) SamplesPerTick() float64 {
	ticksPerSecond := beepbox.TicksPerPart * beepbox.PartsPerBeat * float64(s.Song.Tempo) / 60.0
	return float64(s.SampleRate) / ticksPerSecond
}

func (s *Synth) ticksPerBar() int {
	return beepbox.TicksPerPart * beepbox.PartsPerBeat * s.Song.BeatsPerBar
}

// Render fills the buffer with the next samples of the song. The synthesis
// path clamps and sanitizes instead of failing; an error here indicates a
// configuration bug such as an unknown instrument variant.
func (s *Synth) Render(buffer beepbox.AudioBuffer) (renderErr error) {
	defer func() {
		if err := recover(); err != nil {
			renderErr = fmt.Errorf("render panicked: %v", err)
		}
	}()

	for i := range buffer {
		buffer[i] = [2]float32{}
	}
	s.syncState()

	samplesPerTick := s.SamplesPerTick()
	if s.tickSampleCountdown <= 0 || s.tickSampleCountdown > samplesPerTick {
		s.tickSampleCountdown = samplesPerTick
		s.startOfTick = true
	}

	pos := 0
	for pos < len(buffer) {
		runLength := len(buffer) - pos
		if tickRemaining := int(math.Ceil(s.tickSampleCountdown)); tickRemaining < runLength {
			runLength = tickRemaining
		}
		if runLength <= 0 {
			runLength = 1
		}

		if s.startOfTick {
			s.determineCurrentActiveTones()
			s.startOfTick = false
		}

		out := buffer[pos : pos+runLength]
		for ci, channel := range s.channels {
			for ii, state := range channel.instruments {
				if !state.awake {
					continue
				}
				inst := &s.Song.Channels[ci].Instruments[ii]
				state.refreshWaves(inst)
				state.allocateDelayLines(inst)
				state.loadDistortionFilters(inst, float64(s.SampleRate), runLength)
				for _, tone := range state.activeTones {
					s.computeTone(inst, ci, tone, runLength, samplesPerTick)
					s.renderTone(inst, state, tone, runLength)
				}
				for _, tone := range state.releasedTones {
					s.computeTone(inst, ci, tone, runLength, samplesPerTick)
					s.renderTone(inst, state, tone, runLength)
				}
				s.processEffects(inst, state, out, runLength)
			}
		}

		s.applyLimiter(out)

		pos += runLength
		s.totalSamples += runLength
		s.tickSampleCountdown -= float64(runLength)
		if s.liveInputDeadline > 0 {
			s.liveInputDeadline -= runLength
			if s.liveInputDeadline < 0 {
				s.liveInputDeadline = 0
			}
		}
		if s.tickSampleCountdown <= 0 {
			s.advanceTick()
			s.tickSampleCountdown += samplesPerTick
			s.startOfTick = true
		}
	}
	return nil
}

// syncState resizes the per-channel and per-instrument engine state to
// match the song, preserving whatever still applies.
func (s *Synth) syncState() {
	song := s.Song
	for len(s.channels) < song.ChannelCount() {
		s.channels = append(s.channels, &channelState{})
	}
	s.channels = s.channels[:song.ChannelCount()]
	for ci, channel := range s.channels {
		for len(channel.instruments) < song.InstrumentsPerChannel {
			channel.instruments = append(channel.instruments, &instrumentState{channel: ci, index: len(channel.instruments)})
		}
		channel.instruments = channel.instruments[:song.InstrumentsPerChannel]
		if channel.currentInstrument >= song.InstrumentsPerChannel {
			channel.currentInstrument = 0
		}
	}
	if s.bar >= song.BarCount {
		s.bar = clampInt(song.LoopStart, 0, song.BarCount-1)
	}
	if cap(s.tempMono) < s.SampleRate {
		s.tempMono = make([]float32, s.SampleRate)
	}
}

func (s *Synth) newTone() *Tone {
	if n := len(s.tonePool); n > 0 {
		tone := s.tonePool[n-1]
		s.tonePool = s.tonePool[:n-1]
		tone.Reset()
		return tone
	}
	tone := &Tone{}
	tone.Reset()
	return tone
}

func (s *Synth) freeTone(tone *Tone) {
	s.tonePool = append(s.tonePool, tone)
}

// releaseTone moves a tone to the instrument's released queue, or frees it
// right away when the transition does not ring out.
func (s *Synth) releaseTone(state *instrumentState, inst *beepbox.Instrument, tone *Tone) {
	transition := beepbox.Transitions[inst.Transition]
	if !transition.Releases || tone.isOnLastTick {
		s.freeTone(tone)
		return
	}
	tone.released = true
	tone.ticksSinceReleased = 0
	state.releasedTones = append(state.releasedTones, tone)
}

// determineCurrentActiveTones synchronizes each channel's tone queues with
// the pattern notes sounding at the current tick.
func (s *Synth) determineCurrentActiveTones() {
	song := s.Song
	for ci, channel := range s.channels {
		isLiveChannel := len(s.liveInputPitches) > 0 && ci == s.liveInputChannel
		var note, prevNote, nextNote *beepbox.Note
		instrumentIndex := channel.currentInstrument
		var pattern *beepbox.Pattern

		if s.playing && !song.Channels[ci].Mute {
			pattern = song.PatternAtBar(ci, s.bar)
		}
		if pattern != nil {
			instrumentIndex = pattern.Instrument
			part := s.tick / beepbox.TicksPerPart
			for ni := range pattern.Notes {
				n := &pattern.Notes[ni]
				if n.Start <= part && part < n.End {
					note = n
					if ni > 0 && pattern.Notes[ni-1].End == n.Start {
						prevNote = &pattern.Notes[ni-1]
					}
					if ni+1 < len(pattern.Notes) && pattern.Notes[ni+1].Start == n.End {
						nextNote = &pattern.Notes[ni+1]
					}
					break
				}
			}
		}

		// a pattern switching instruments releases the old instrument's
		// tones
		if instrumentIndex != channel.currentInstrument {
			old := channel.instruments[channel.currentInstrument]
			oldInst := &song.Channels[ci].Instruments[channel.currentInstrument]
			for _, tone := range old.activeTones {
				if !tone.liveInput {
					s.releaseTone(old, oldInst, tone)
				}
			}
			old.activeTones = keepLiveInputTones(old.activeTones)
			channel.currentInstrument = instrumentIndex
		}

		state := channel.instruments[instrumentIndex]
		inst := &song.Channels[ci].Instruments[instrumentIndex]

		if note != nil {
			s.syncNoteTones(ci, state, inst, note, prevNote, nextNote)
		} else {
			for _, tone := range state.activeTones {
				if !tone.liveInput {
					s.releaseTone(state, inst, tone)
				}
			}
			state.activeTones = keepLiveInputTones(state.activeTones)
		}

		if isLiveChannel {
			s.syncLiveInputTones(ci, state, inst)
		} else {
			for i := 0; i < len(state.activeTones); {
				if state.activeTones[i].liveInput {
					s.releaseTone(state, inst, state.activeTones[i])
					state.activeTones = append(state.activeTones[:i], state.activeTones[i+1:]...)
				} else {
					i++
				}
			}
		}

		s.enforceToneCap(channel, ci)
		s.updateAwakeness(ci, channel)
	}
}

func keepLiveInputTones(tones []*Tone) []*Tone {
	kept := tones[:0]
	for _, tone := range tones {
		if tone.liveInput {
			kept = append(kept, tone)
		}
	}
	return kept
}

// syncNoteTones resizes the active tone queue to the chord of the given
// note, honoring the chord kind, strumming, and seamless transitions.
func (s *Synth) syncNoteTones(ci int, state *instrumentState, inst *beepbox.Instrument, note, prevNote, nextNote *beepbox.Note) {
	chord := beepbox.Chords[inst.Chord]
	transition := beepbox.Transitions[inst.Transition]
	part := s.tick / beepbox.TicksPerPart

	var wanted [][]int
	if chord.SingleTone {
		wanted = [][]int{note.Pitches}
	} else {
		for i, pitch := range note.Pitches {
			strumDelay := i * chord.StrumParts
			if part >= note.Start+strumDelay {
				wanted = append(wanted, []int{pitch})
			}
		}
	}

	existing := append([]*Tone(nil), state.activeTones...)
	state.activeTones = state.activeTones[:0]

	for i, pitches := range wanted {
		var tone *Tone
		if i < len(existing) && !existing[i].liveInput {
			tone = existing[i]
		}
		if tone != nil && tone.note != note {
			// a new note begins where the old one ended: seamless and slide
			// transitions continue the same tone without a phase reset
			continues := transition.IsSeamless && tone.note != nil && tone.note.End == note.Start
			if continues {
				tone.prevNote = tone.note
				tone.note = note
				tone.nextNote = nextNote
				tone.noteStartPart = note.Start
				tone.noteEndPart = note.End
			} else {
				s.releaseTone(state, inst, tone)
				tone = nil
			}
		} else if tone != nil && tone.note == note {
			tone.nextNote = nextNote
		}
		if tone == nil {
			tone = s.newTone()
			tone.note = note
			tone.prevNote = prevNote
			tone.nextNote = nextNote
			tone.noteStartPart = note.Start
			tone.noteEndPart = note.End
			s.initializeTonePhases(state, inst, tone)
		}
		tone.PitchCount = 0
		for _, p := range pitches {
			if tone.PitchCount < beepbox.MaxChordSize {
				tone.Pitches[tone.PitchCount] = p
				tone.PitchCount++
			}
		}
		state.activeTones = append(state.activeTones, tone)
	}

	for i := len(wanted); i < len(existing); i++ {
		if existing[i].liveInput {
			state.activeTones = append(state.activeTones, existing[i])
		} else {
			s.releaseTone(state, inst, existing[i])
		}
	}
	state.awake = true
	state.flushing = false
	state.flushedSamples = 0
	state.deactivateAfterThisTick = false
}

func (s *Synth) syncLiveInputTones(ci int, state *instrumentState, inst *beepbox.Instrument) {
	var live []*Tone
	for _, tone := range state.activeTones {
		if tone.liveInput {
			live = append(live, tone)
		}
	}
	chord := beepbox.Chords[inst.Chord]
	wantCount := len(s.liveInputPitches)
	if chord.SingleTone && wantCount > 0 {
		wantCount = 1
	}
	for len(live) < wantCount {
		tone := s.newTone()
		tone.liveInput = true
		s.initializeTonePhases(state, inst, tone)
		live = append(live, tone)
		state.activeTones = append(state.activeTones, tone)
	}
	for len(live) > wantCount {
		last := live[len(live)-1]
		live = live[:len(live)-1]
		for i, tone := range state.activeTones {
			if tone == last {
				state.activeTones = append(state.activeTones[:i], state.activeTones[i+1:]...)
				break
			}
		}
		s.releaseTone(state, inst, last)
	}
	if wantCount > 0 {
		state.awake = true
		state.flushing = false
		state.flushedSamples = 0
		state.deactivateAfterThisTick = false
		if chord.SingleTone {
			tone := live[0]
			tone.PitchCount = 0
			for _, p := range s.liveInputPitches {
				if tone.PitchCount < beepbox.MaxChordSize {
					tone.Pitches[tone.PitchCount] = p
					tone.PitchCount++
				}
			}
		} else {
			for i, tone := range live {
				tone.Pitches[0] = s.liveInputPitches[i]
				tone.PitchCount = 1
			}
		}
	}
}

// initializeTonePhases gives fresh tones their starting phases: spectrum
// and drumset waves start at a random zero crossing to avoid an onset pop.
func (s *Synth) initializeTonePhases(state *instrumentState, inst *beepbox.Instrument, tone *Tone) {
	switch inst.Type {
	case beepbox.InstrumentSpectrum, beepbox.InstrumentDrumset:
		state.refreshWaves(inst)
		wave := state.spectrumWave
		if inst.Type == beepbox.InstrumentDrumset {
			wave = state.drumsetWaves[0]
		}
		if wave != nil {
			tone.phases[0] = randomZeroCrossingPhase(wave, s.rand)
		}
	}
}

func randomZeroCrossingPhase(wave []float32, rand *Rand) float64 {
	start := rand.Intn(len(wave))
	prev := wave[start]
	for i := 1; i < len(wave); i++ {
		index := (start + i) % len(wave)
		cur := wave[index]
		if (prev < 0) != (cur < 0) {
			return float64(index) / float64(len(wave))
		}
		prev = cur
	}
	return float64(start) / float64(len(wave))
}

// enforceToneCap marks surplus released tones to fade out fast.
func (s *Synth) enforceToneCap(channel *channelState, ci int) {
	total := 0
	for _, state := range channel.instruments {
		total += len(state.activeTones) + len(state.releasedTones)
	}
	excess := total - beepbox.MaximumTonesPerChannel
	if excess <= 0 {
		return
	}
	for _, state := range channel.instruments {
		for _, tone := range state.releasedTones {
			if excess <= 0 {
				return
			}
			if !tone.fadeOutFast {
				tone.fadeOutFast = true
				excess--
			}
		}
	}
}

// updateAwakeness starts the flush countdown on instruments whose tones
// have all expired. Draining without recirculation attenuates the tail
// below 1/256 of full scale within one traversal of the delay lines, so
// deactivation lands within capacity/samplesPerTick + 1 ticks.
func (s *Synth) updateAwakeness(ci int, channel *channelState) {
	for _, state := range channel.instruments {
		if !state.awake || state.flushing {
			continue
		}
		if len(state.activeTones) == 0 && len(state.releasedTones) == 0 {
			state.flushing = true
			state.flushedSamples = 0
		}
	}
}

// advanceTick ages released tones, retires instruments that finished
// flushing, runs the sanitization sweep, and moves the song clock.
func (s *Synth) advanceTick() {
	song := s.Song
	for ci, channel := range s.channels {
		for ii, state := range channel.instruments {
			inst := &song.Channels[ci].Instruments[ii]
			transition := beepbox.Transitions[inst.Transition]
			for i := 0; i < len(state.releasedTones); {
				tone := state.releasedTones[i]
				tone.ticksSinceReleased++
				if tone.isOnLastTick || tone.fadeOutFast || tone.ticksSinceReleased >= transition.ReleaseTicks {
					state.releasedTones = append(state.releasedTones[:i], state.releasedTones[i+1:]...)
					s.freeTone(tone)
				} else {
					i++
				}
			}
			if state.deactivateAfterThisTick {
				state.clearDelayLines()
				state.awake = false
				state.flushing = false
				state.deactivateAfterThisTick = false
			}
			if state.awake {
				state.sanitizeDelayLines()
			}
		}
	}

	s.tick++
	s.totalTicks++
	if s.tick >= s.ticksPerBar() {
		s.tick = 0
		if s.playing {
			s.bar++
			loopEnd := song.LoopStart + song.LoopLength
			if s.bar >= loopEnd || s.bar >= song.BarCount {
				s.bar = song.LoopStart
			}
		}
	}
}

// applyLimiter runs the leaky-peak compressor/limiter over the mixed
// stereo buffer.
func (s *Synth) applyLimiter(buffer beepbox.AudioBuffer) {
	limitRise := 4000.0 / float64(s.SampleRate)
	limitDecay := 4.0 / float64(s.SampleRate)
	limit := s.limit
	for i := range buffer {
		left := float64(buffer[i][0])
		right := float64(buffer[i][1])
		abs := math.Max(math.Abs(left), math.Abs(right))
		if abs > limit {
			limit += (abs - limit) * limitRise
		} else {
			limit += (abs - limit) * limitDecay * (1.0 + limit)
		}
		divisor := limit*0.8 + 0.25
		if limit >= 1.0 {
			divisor = limit * 1.05
		}
		gain := s.Volume / divisor
		buffer[i][0] = float32(left * gain)
		buffer[i][1] = float32(right * gain)
	}
	if math.IsNaN(limit) || math.IsInf(limit, 0) {
		limit = 0
	}
	if limit < 0 {
		limit = 0
	}
	s.limit = limit
}
