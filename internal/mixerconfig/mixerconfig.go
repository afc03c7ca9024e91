// Package mixerconfig loads MixerOptions from a config file (or
// defaults, if none is found), the same viper-defaults-then-read
// pattern the teacher's cmd/config package uses for its own options.
package mixerconfig

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/AuburnSounds/game-mixer/pkg/mixer"
)

func setViperDefaults() {
	viper.SetDefault("sampleRate", 48000.0)
	viper.SetDefault("numChannels", 16)
	viper.SetDefault("isLoopback", false)
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")
}

// Load reads configFilePath (if it exists) over the documented
// defaults and returns the resulting MixerOptions plus the configured
// log level and log file path. A missing config file is not an error:
// defaults apply and the absence is logged at info level.
func Load(configFilePath string) (mixer.MixerOptions, string, string) {
	setViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found, using defaults", "configFilePath", configFilePath)
		} else {
			slog.Error("error reading config file", "err", err)
		}
	}

	options := mixer.MixerOptions{
		SampleRate:  float32(viper.GetFloat64("sampleRate")),
		NumChannels: int32(viper.GetInt("numChannels")),
		IsLoopback:  viper.GetBool("isLoopback"),
	}

	return options, viper.GetString("loglevel"), viper.GetString("logfile")
}
