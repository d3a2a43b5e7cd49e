// Command worldbridge analyses and resynthesizes WAV files through the bridge
// entry points.
package main

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

func main() {
	if err := rootCommand(afero.NewOsFs(), viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}
