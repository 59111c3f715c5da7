package dataset

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Durations maps filename to clip duration in seconds. It is the
// required input for duration-normalised metrics such as PSDS.
type Durations map[string]float64

// LoadDurations reads a tab-separated table with columns
// filename, duration.
func LoadDurations(path string) (Durations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open durations: %w", err)
	}
	defer func() { _ = f.Close() }()

	d := make(Durations)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if line == 1 && strings.HasPrefix(text, "filename") {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("%s:%d: expected filename\\tduration", path, line)
		}
		dur, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad duration %q: %w", path, line, fields[1], err)
		}
		d[fields[0]] = dur
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan durations: %w", err)
	}
	return d, nil
}

// Save writes the duration table as tab-separated text, sorted by
// filename for stable output.
func (d Durations) Save(path string) error {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create durations: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "filename\tduration")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.3f\n", name, d[name])
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write durations: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close durations: %w", err)
	}
	return nil
}

// Total sums the durations of the given filenames in seconds.
// Filenames without a recorded duration are reported as an error so a
// duration-normalised metric never silently under-counts.
func (d Durations) Total(names []string) (float64, error) {
	var total float64
	for _, name := range names {
		dur, ok := d[name]
		if !ok {
			return 0, fmt.Errorf("no duration recorded for %s", name)
		}
		total += dur
	}
	return total, nil
}

// DurationsFromStore derives a duration table from the feature store:
// frame count times the feature hop, for each named clip. Used when no
// duration table was shipped with the ground truth.
func DurationsFromStore(store *FeatureStore, names []string, frameHop float64) (Durations, error) {
	d := make(Durations, len(names))
	for _, name := range names {
		clip, err := store.Load(name)
		if err != nil {
			return nil, fmt.Errorf("derive duration for %s: %w", name, err)
		}
		d[name] = float64(len(clip.Frames)) * frameHop
	}
	return d, nil
}
