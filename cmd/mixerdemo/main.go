// Command mixerdemo loads a WAV file and plays it through the mixer,
// either on the default output device or in loopback mode (mixed to
// an in-memory buffer and discarded), depending on config.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/AuburnSounds/game-mixer/internal/hostaudio"
	"github.com/AuburnSounds/game-mixer/internal/mixerconfig"
	"github.com/AuburnSounds/game-mixer/internal/mixerlog"
	"github.com/AuburnSounds/game-mixer/pkg/decodestream"
	"github.com/AuburnSounds/game-mixer/pkg/mixer"
	"github.com/AuburnSounds/game-mixer/pkg/sink"
	"github.com/AuburnSounds/game-mixer/pkg/source"
)

const demoBufferFrames = 1024

// outputChannels is the device's output channel count, always stereo —
// not to be confused with MixerOptions.NumChannels, which sizes the
// channel pool (polyphony), a wholly different axis.
const outputChannels = 2

func openBackend(opts mixer.MixerOptions) sink.Sink {
	if opts.IsLoopback {
		return nil
	}
	return hostaudio.New(demoBufferFrames, outputChannels)
}

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	wavFilePath := flag.String("wav", "", "Path to a WAV file to play.")
	flag.Parse()

	mixerOptions, logLevel, logFile := mixerconfig.Load(*configFilePath)
	logFilePointer, err := mixerlog.Configure(logLevel, logFile, slog.HandlerOptions{})
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		panic(err)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	if *wavFilePath == "" {
		slog.Error("missing required -wav flag")
		os.Exit(1)
	}

	f, err := os.Open(*wavFilePath)
	if err != nil {
		slog.Error("failed to open WAV file", "path", *wavFilePath, "err", err)
		os.Exit(1)
	}
	defer f.Close()

	stream, err := decodestream.NewWAVStream(f)
	if err != nil {
		slog.Error("failed to decode WAV file", "err", err)
		os.Exit(1)
	}

	m := mixer.New(mixerOptions, openBackend(mixerOptions))
	if m.IsErrored() {
		slog.Error("mixer failed to start", "err", m.LastErrorString())
		os.Exit(1)
	}

	src := source.New(stream)
	opts := mixer.DefaultPlayOptions()
	m.Play(src, opts)

	if mixerOptions.IsLoopback {
		runLoopback(m)
		return
	}

	slog.Info("playing", "file", *wavFilePath, "sampleRate", m.SampleRate())
	select {}
}

// runLoopback drives the mixer manually for a few seconds, discarding
// the generated audio. Useful for smoke-testing a build without an
// output device.
func runLoopback(m *mixer.Mixer) {
	dst := [2][]float32{make([]float32, demoBufferFrames), make([]float32, demoBufferFrames)}
	seconds := 5.0
	blocksNeeded := int(seconds * float64(m.SampleRate()) / float64(demoBufferFrames))
	for i := 0; i < blocksNeeded; i++ {
		m.Generate(dst, demoBufferFrames)
		time.Sleep(0)
	}
	slog.Info("loopback run complete")
}
