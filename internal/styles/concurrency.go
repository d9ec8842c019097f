package styles

import (
	"sort"
	"strings"
)

// PrimitiveCount records how often one family of concurrency primitives
// appears across the project's sources and manifests.
type PrimitiveCount struct {
	Name     string   `json:"name"`
	Evidence []string `json:"evidence"`
	Count    int      `json:"count"`
}

// primitiveFamilies groups literal signatures by communication style.
var primitiveFamilies = []struct {
	name       string
	signatures []string
}{
	{"Channel-based (tokio)", []string{"tokio::sync::mpsc", "tokio::sync::oneshot", "tokio::sync::broadcast"}},
	{"Channel-based (crossbeam)", []string{"crossbeam-channel", "crossbeam::channel"}},
	{"Shared State (Mutex)", []string{"Arc<Mutex", "Mutex<", "std::sync::Mutex"}},
	{"Shared State (RwLock)", []string{"Arc<RwLock", "RwLock<", "std::sync::RwLock"}},
	{"Async Channels", []string{"async_channel", "flume"}},
	{"Data Parallelism", []string{"rayon", "par_iter"}},
	{"Message Passing", []string{"actix", "xactor", "ractor"}},
}

// CountPrimitives scans the combined source and manifest text for
// concurrency-primitive usage. Families with zero occurrences are
// omitted; output is sorted by count, then name.
func CountPrimitives(code, manifest string) []PrimitiveCount {
	combined := code + "\n" + manifest
	var counts []PrimitiveCount
	for _, family := range primitiveFamilies {
		var evidence []string
		total := 0
		for _, sig := range family.signatures {
			n := strings.Count(combined, sig)
			if n > 0 {
				evidence = append(evidence, sig)
				total += n
			}
		}
		if total == 0 {
			continue
		}
		counts = append(counts, PrimitiveCount{
			Name:     family.name,
			Evidence: evidence,
			Count:    total,
		})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	return counts
}
