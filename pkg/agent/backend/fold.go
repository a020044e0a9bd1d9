package backend

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/pprof/profile"
)

// foldStacks aggregates a parsed pprof profile into collapsed stacks:
// a map from "root;caller;leaf" to the summed value of the chosen
// sample type. Samples with zero value or no locations are skipped.
func foldStacks(p *profile.Profile, sampleType string) (map[string]int64, error) {
	idx := -1
	for i, st := range p.SampleType {
		if st.Type == sampleType {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("profile has no %q sample type", sampleType)
	}

	stacks := make(map[string]int64)
	var frames bytes.Buffer
	for _, s := range p.Sample {
		if idx >= len(s.Value) || s.Value[idx] == 0 || len(s.Location) == 0 {
			continue
		}

		// Locations are leaf-first and inline frames within a
		// location are innermost-first. Collapsed format wants
		// the root first, so walk both in reverse.
		frames.Reset()
		for i := len(s.Location) - 1; i >= 0; i-- {
			loc := s.Location[i]
			if len(loc.Line) == 0 {
				if frames.Len() > 0 {
					frames.WriteByte(';')
				}
				fmt.Fprintf(&frames, "%#x", loc.Address)
				continue
			}
			for j := len(loc.Line) - 1; j >= 0; j-- {
				if frames.Len() > 0 {
					frames.WriteByte(';')
				}
				if fn := loc.Line[j].Function; fn != nil && fn.Name != "" {
					frames.WriteString(fn.Name)
				} else {
					fmt.Fprintf(&frames, "%#x", loc.Address)
				}
			}
		}
		stacks[frames.String()] += s.Value[idx]
	}
	return stacks, nil
}

// renderFolded serializes collapsed stacks as "stack value" lines,
// sorted by stack for stable output. Non-positive values are
// dropped, so a window in which nothing happened renders to nothing.
func renderFolded(stacks map[string]int64) []byte {
	keys := make([]string, 0, len(stacks))
	for k, v := range stacks {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(stacks[k], 10))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// parse decodes a serialized (possibly gzipped) pprof profile.
func parse(raw []byte) (*profile.Profile, error) {
	p, err := profile.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	return p, nil
}

// fold parses a serialized pprof profile and renders the chosen
// sample type in collapsed format.
func fold(raw []byte, sampleType string) ([]byte, error) {
	p, err := parse(raw)
	if err != nil {
		return nil, err
	}
	stacks, err := foldStacks(p, sampleType)
	if err != nil {
		return nil, err
	}
	return renderFolded(stacks), nil
}
