package cmd

import (
	"fmt"
	"io"
)

const banner = `
  _____            _  __ _
 |  ___|   _  ___ | |/ _| |_   ___  __
 | |_ | | | |/ _ \| | |_| | | | \ \/ /
 |  _|| |_| |  __/| |  _| | |_| |>  <
 |_|   \__,_|\___||_|_| |_|\__,_/_/\_\

`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[33m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Pump authentication service - Version %s\x1b[0m\n\n", Version)
}
