package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner shown on interactive startup.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Indigo-to-rose gradient, one color per line.
	s1 := termenv.String("                _                      ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("   ___ __ _  __| | ___ _ __   ___ ___ ").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String("  / __/ _` |/ _` |/ _ \\ '_ \\ / __/ _ \\").Foreground(p.Color("#c084fc"))
	s4 := termenv.String(" | (_| (_| | (_| |  __/ | | | (_|  __/").Foreground(p.Color("#e879f9"))
	s5 := termenv.String("  \\___\\__,_|\\__,_|\\___|_| |_|\\___\\___|").Foreground(p.Color("#fb7185"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println()
}
