// Command gen-frames generates hex-encoded ECG frame fixtures for testing
// the decoder and the dev-mode ingest path.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"log"
	"os"

	"github.com/banshee-data/cardio.report/internal/bridge"
	"github.com/banshee-data/cardio.report/internal/frame"
)

func main() {
	output := flag.String("o", "frames.txt", "output path")
	frames := flag.Int("n", 100, "number of frames")
	samples := flag.Int("samples", 10, "samples per frame")
	beatMS := flag.Int64("beat", 800, "beat interval in ms")
	flag.Parse()

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	synth := bridge.NewSynth(*beatMS, 5)
	for i := 0; i < *frames; i++ {
		values, timestamps := synth.Batch(*samples)

		deltas := make([]uint8, len(values))
		prev := timestamps[0]
		for j := 1; j < len(timestamps); j++ {
			deltas[j] = uint8(timestamps[j] - prev)
			prev = timestamps[j]
		}

		payload, err := frame.Encode(&frame.Frame{
			T0:     uint32(timestamps[0]),
			Values: values,
			Deltas: deltas,
		})
		if err != nil {
			log.Fatalf("failed to encode frame %d: %v", i, err)
		}

		w.WriteString(hex.EncodeToString(payload))
		w.WriteByte('\n')
	}
	log.Printf("✓ Created: %s (%d frames)", *output, *frames)
}
