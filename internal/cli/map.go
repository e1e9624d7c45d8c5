package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drake/beatclock/tempo"
)

func newMapCmd() *cobra.Command {
	var (
		tempos []string
		beats  []float64
		times  []float64
		start  float64
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Convert between beats and seconds offline",
		Long: "map builds a tempo map from --tempo BEAT:BPM changes and answers " +
			"--beat and --time queries against it. Without queries it prints the map.",
		Example: "  beatclock map --tempo 0:120 --tempo 4:60 --beat 6 --time 3",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := tempo.New(start, logger)
			for _, spec := range tempos {
				beat, bpm, err := parseTempo(spec)
				if err != nil {
					return err
				}
				if err := m.Upsert(beat, bpm); err != nil {
					return fmt.Errorf("--tempo %s: %w", spec, err)
				}
			}
			return printMap(cmd.OutOrStdout(), m, beats, times)
		},
	}

	cmd.Flags().StringArrayVar(&tempos, "tempo", nil, "Tempo change BEAT:BPM (repeatable)")
	cmd.Flags().Float64SliceVar(&beats, "beat", nil, "Beat to convert to seconds (repeatable)")
	cmd.Flags().Float64SliceVar(&times, "time", nil, "Seconds to convert to a beat (repeatable)")
	cmd.Flags().Float64Var(&start, "start", 0, "Time of beat 0 in seconds")

	return cmd
}

// parseTempo parses BEAT:BPM.
func parseTempo(spec string) (beat, bpm float64, err error) {
	b, t, ok := strings.Cut(spec, ":")
	if !ok {
		return 0, 0, fmt.Errorf("--tempo %q: want BEAT:BPM", spec)
	}
	if beat, err = strconv.ParseFloat(strings.TrimSpace(b), 64); err != nil {
		return 0, 0, fmt.Errorf("--tempo %q: beat: %w", spec, err)
	}
	if bpm, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
		return 0, 0, fmt.Errorf("--tempo %q: bpm: %w", spec, err)
	}
	return beat, bpm, nil
}

func printMap(w io.Writer, m *tempo.Map, beats, times []float64) error {
	if len(beats) == 0 && len(times) == 0 {
		entries := m.Entries()
		if len(entries) == 0 {
			_, err := fmt.Fprintf(w, "no tempo changes (%g bpm)\n", float64(tempo.DefaultTempo))
			return err
		}
		for _, e := range entries {
			if _, err := fmt.Fprintf(w, "beat %g\t%g bpm\tat %.6fs\n", e.Beat, e.Tempo, m.TimeAtBeat(e.Beat)); err != nil {
				return err
			}
		}
		return nil
	}

	for _, b := range beats {
		if _, err := fmt.Fprintf(w, "beat %g = %.6fs\n", b, m.TimeAtBeat(b)); err != nil {
			return err
		}
	}
	for _, t := range times {
		if _, err := fmt.Fprintf(w, "time %g = beat %.6f\n", t, m.BeatAtTime(t)); err != nil {
			return err
		}
	}
	return nil
}
