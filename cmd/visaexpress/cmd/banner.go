package cmd

import (
	"io"

	"github.com/fatih/color"
)

const banner = `
 __     ___           _____                                
 \ \   / (_)___  __ _| ____|_  ___ __  _ __ ___  ___ ___ 
  \ \ / /| / __|/ _' |  _| \ \/ / '_ \| '__/ _ \/ __/ __|
   \ V / | \__ \ (_| | |___ >  <| |_) | | |  __/\__ \__ \
    \_/  |_|___/\__,_|_____/_/\_\ .__/|_|  \___||___/___/
                                |_|                      
`

func printBanner(w io.Writer) {
	color.New(color.FgBlue).Fprint(w, banner)
	color.New(color.FgGreen).Fprintf(w, "  Admin Panel - Version %s\n\n", Version)
}
