package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/keisili/beepbox"
	beepboxoto "github.com/keisili/beepbox/oto"
	"github.com/keisili/beepbox/synth"
	"github.com/keisili/beepbox/version"
)

func main() {
	stdout := pflag.BoolP("stdout", "s", false, "Do not write files; write to standard output instead.")
	help := pflag.BoolP("help", "h", false, "Show help.")
	directory := pflag.StringP("output", "o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the current working directory.")
	play := pflag.BoolP("play", "p", false, "Play the input songs (default behaviour when no other output is defined).")
	rawOut := pflag.BoolP("raw", "r", false, "Output the rendered song as .raw file.")
	wavOut := pflag.BoolP("wav", "w", false, "Output the rendered song as .wav file.")
	pcm := pflag.BoolP("pcm", "c", false, "Convert audio to 16-bit signed PCM when outputting.")
	urlOut := pflag.BoolP("url", "u", false, "Print the song in its URL form.")
	stats := pflag.Bool("stats", false, "Print peak and RMS levels of the rendered song.")
	sampleRate := pflag.Int("samplerate", beepbox.DefaultSampleRate, "Sample rate for rendering and playback.")
	seed := pflag.Uint32("seed", 1, "Random seed for guitar plucks and spectrum phases.")
	versionFlag := pflag.BoolP("version", "v", false, "Print version.")
	pflag.Usage = printUsage
	pflag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if pflag.NArg() == 0 || *help {
		pflag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut && !*urlOut && !*stats {
		*play = true // nothing else requested, just play the song
	}
	var audioContext *beepboxoto.OtoContext
	if *play {
		var err error
		audioContext, err = beepboxoto.NewContext(*sampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire audio context: %v\n", err)
			os.Exit(1)
		}
	}
	process := func(input string) error {
		song, name, err := loadSong(input)
		if err != nil {
			return err
		}
		output := func(extension string, contents []byte) error {
			if *stdout {
				os.Stdout.Write(contents)
				return nil
			}
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %w", err)
				}
			}
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %w", dir, err)
			}
			f := filepath.Join(dir, name+extension)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %w", f, err)
			}
			return nil
		}
		if *urlOut {
			fmt.Println(beepbox.EncodeURL(song))
		}
		if !*play && !*rawOut && !*wavOut && !*stats {
			return nil
		}
		buffer, err := synth.RenderSong(song, *sampleRate, *seed)
		if err != nil {
			return fmt.Errorf("rendering failed: %w", err)
		}
		if *stats {
			left := synth.ChannelSamples(buffer, 0)
			right := synth.ChannelSamples(buffer, 1)
			fmt.Printf("%s: %.1f s, peak %.3f / %.3f, rms %.3f / %.3f\n",
				name, float64(len(buffer))/float64(*sampleRate),
				synth.Peak(left), synth.Peak(right), synth.RMS(left), synth.RMS(right))
		}
		if *rawOut {
			raw, err := buffer.Raw(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %w", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %w", err)
			}
		}
		if *wavOut {
			wav, err := buffer.Wav(*sampleRate, *pcm)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %w", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %w", err)
			}
		}
		if *play {
			sink := audioContext.Output()
			defer sink.Close()
			if err := sink.WriteAudio(buffer); err != nil {
				return fmt.Errorf("could not play audio: %w", err)
			}
			// the device pulls on its own schedule; wait for the whole
			// buffer plus a little tail
			time.Sleep(time.Duration(len(buffer)) * time.Second / time.Duration(*sampleRate))
			time.Sleep(200 * time.Millisecond)
		}
		return nil
	}
	retval := 0
	for _, param := range pflag.Args() {
		if err := process(param); err != nil {
			fmt.Fprintf(os.Stderr, "could not process %v: %v\n", param, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

// loadSong accepts either a bare song URL or a path to a file holding a
// URL, JSON, or YAML form.
func loadSong(input string) (*beepbox.Song, string, error) {
	if _, err := os.Stat(input); err != nil {
		song, parseErr := beepbox.ParseURL(input)
		if parseErr != nil {
			return nil, "", fmt.Errorf("input is neither a readable file nor a song URL: %v", parseErr)
		}
		return song, "song", nil
	}
	contents, err := os.ReadFile(input)
	if err != nil {
		return nil, "", fmt.Errorf("could not read file %v: %w", input, err)
	}
	_, base := filepath.Split(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	ext := strings.ToLower(filepath.Ext(input))
	if ext == ".yml" || ext == ".yaml" {
		var song beepbox.Song
		if err := yaml.Unmarshal(contents, &song); err != nil {
			return nil, "", fmt.Errorf("could not parse %v as YAML: %w", input, err)
		}
		return &song, name, nil
	}
	song, err := beepbox.ParseURL(string(contents))
	if err != nil {
		return nil, "", fmt.Errorf("could not parse %v: %w", input, err)
	}
	return song, name, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Command line utility for playing and rendering song URLs and .json/.yml song files.\nUsage: %s [flags] [url or path ...]\n", os.Args[0])
	pflag.PrintDefaults()
}
