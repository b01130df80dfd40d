package beepbox

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestJSONRoundTrip(t *testing.T) {
	song := makeRandomSong(77)
	data, err := json.Marshal(song)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	// The JSON form is lossy around note expression (0..100 percent), so
	// compare through another marshal instead of deep equality.
	data2, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("Marshal again: %v", err)
	}
	if string(data) != string(data2) {
		t.Fatalf("JSON round trip unstable:\n%s\n%s", data, data2)
	}
}

func TestParseURLDetectsJSON(t *testing.T) {
	song := NewSong()
	data, err := json.Marshal(song)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := ParseURL(" \n " + string(data))
	if err != nil {
		t.Fatalf("ParseURL on JSON: %v", err)
	}
	if decoded.Tempo != song.Tempo || decoded.ChannelCount() != song.ChannelCount() {
		t.Fatal("JSON detected through ParseURL did not produce the same song")
	}
}

func TestJSONVolumesMapToExpression(t *testing.T) {
	data := []byte(`{
		"format": "BeepBox",
		"version": 9,
		"scale": "easy :)",
		"key": "C",
		"beatsPerBar": 8,
		"ticksPerBeat": 4,
		"beatsPerMinute": 120,
		"channels": [{
			"type": "pitch",
			"octaveScrollBar": 3,
			"instruments": [{"type": "chip", "wave": "square"}],
			"patterns": [{"instrument": 1, "notes": [
				{"pitches": [12], "points": [
					{"tick": 0, "pitchBend": 0, "volume": 100},
					{"tick": 24, "pitchBend": 0, "volume": 33}
				]}
			]}],
			"sequence": [1]
		}]
	}`)
	song, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	note := song.Channels[0].Patterns[0].Notes[0]
	if note.Pins[0].Expression != 3 {
		t.Errorf("volume 100 should map to expression 3, got %d", note.Pins[0].Expression)
	}
	if note.Pins[1].Expression != 1 {
		t.Errorf("volume 33 should map to expression 1, got %d", note.Pins[1].Expression)
	}
	if note.Start != 0 || note.End != 24 {
		t.Errorf("note should span ticks 0..24, got %d..%d", note.Start, note.End)
	}
}

func TestJSONLegacyAliasesAndUnknownFields(t *testing.T) {
	data := []byte(`{
		"format": "BeepBox",
		"scale": "romani :)",
		"somethingUnrecognized": {"nested": true},
		"channels": []
	}`)
	song, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if Scales[song.Scale].Name != "dbl harmonic :)" {
		t.Errorf("scale alias not applied, got %q", Scales[song.Scale].Name)
	}
	// unrecognized names fall back to the documented defaults
	if idx := transitionIndexByName("no such transition"); idx != TransitionDefault {
		t.Errorf("unknown transition should fall back to %d, got %d", TransitionDefault, idx)
	}
	if idx := scaleIndexByName("no such scale"); idx != ScaleDefault {
		t.Errorf("unknown scale should fall back to expert, got %d", idx)
	}
}

func TestJSONGlobalReverbTransfer(t *testing.T) {
	data := []byte(`{
		"format": "BeepBox",
		"reverb": 3,
		"channels": [
			{"type": "pitch", "instruments": [{"type": "chip"}], "patterns": [], "sequence": []},
			{"type": "drum", "instruments": [{"type": "noise"}], "patterns": [], "sequence": []}
		]
	}`)
	song, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	pitchInst := &song.Channels[0].Instruments[0]
	if !pitchInst.EffectEnabled(EffectReverb) || pitchInst.Reverb != 3 {
		t.Errorf("song-global reverb should transfer to pitch instruments: enabled=%v amount=%d", pitchInst.EffectEnabled(EffectReverb), pitchInst.Reverb)
	}
	noiseInst := &song.Channels[1].Instruments[0]
	if noiseInst.EffectEnabled(EffectReverb) {
		t.Error("song-global reverb should not touch noise channels")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	song := makeRandomSong(99)
	data, err := yaml.Marshal(song)
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}
	var decoded Song
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	data2, err := yaml.Marshal(&decoded)
	if err != nil {
		t.Fatalf("yaml.Marshal again: %v", err)
	}
	if string(data) != string(data2) {
		t.Fatalf("YAML round trip unstable:\n%s\n%s", data, data2)
	}
}
