// Command rawinfo reads capture float dumps back and prints per-channel
// statistics for each one.
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/fatih/color"

	"blossom/capture"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: rawinfo <variant>.f32.<w>.<h>.data ...")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := describe(os.Stdout, path); err != nil {
			color.New(color.FgRed).Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func describe(w io.Writer, path string) error {
	variant, width, height, err := capture.ParseRawName(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pix, err := capture.ReadRaw(f, width, height)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s %dx%d\n", path, variant, width, height)
	for c, s := range summarize(pix) {
		fmt.Fprintf(w, "  %c min=%.4f max=%.4f mean=%.4f\n", "rgba"[c], s.Min, s.Max, s.Mean)
	}
	return nil
}

// channelStats summarizes one channel of a dump.
type channelStats struct {
	Min, Max, Mean float64
}

func summarize(pix []float32) [4]channelStats {
	var out [4]channelStats
	for c := range out {
		out[c] = channelStats{Min: math.Inf(1), Max: math.Inf(-1)}
	}
	n := len(pix) / 4
	if n == 0 {
		return [4]channelStats{}
	}
	for i := 0; i < n; i++ {
		for c := 0; c < 4; c++ {
			v := float64(pix[i*4+c])
			out[c].Min = math.Min(out[c].Min, v)
			out[c].Max = math.Max(out[c].Max, v)
			out[c].Mean += v
		}
	}
	for c := range out {
		out[c].Mean /= float64(n)
	}
	return out
}
