package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/chaditya95/agentic-resume-picker/internal/candidate"
)

// Metadata summarizes one batch run. Field names are stable across runs for
// downstream tooling.
type Metadata struct {
	TotalCandidates int       `json:"total_candidates"`
	Completed       int       `json:"completed"`
	Failed          int       `json:"failed"`
	Cancelled       int       `json:"cancelled"`
	Model           string    `json:"model"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Report is the final ranked output of a batch run.
type Report struct {
	Metadata Metadata            `json:"metadata"`
	Results  []*candidate.Record `json:"results"`
}

// BuildReport collects terminal candidate states into a ranked report:
// scored candidates by score descending (ties keep input order), then
// failed and cancelled candidates in input order. It performs no I/O and
// cannot fail; callers invoke it once no candidate remains non-terminal.
func BuildReport(batch *Batch, model string, generatedAt time.Time) *Report {
	results := make([]*candidate.Record, len(batch.Records))
	copy(results, batch.Records)

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch {
		case a.Scored() && !b.Scored():
			return true
		case !a.Scored() && b.Scored():
			return false
		case a.Scored() && b.Scored():
			return a.Result.Score > b.Result.Score
		default:
			return false
		}
	})

	meta := Metadata{
		TotalCandidates: len(results),
		Model:           model,
		GeneratedAt:     generatedAt,
	}
	for _, rec := range results {
		switch rec.State {
		case candidate.StateCompleted:
			meta.Completed++
		case candidate.StateFailed:
			meta.Failed++
		case candidate.StateCancelled:
			meta.Cancelled++
		}
	}

	return &Report{Metadata: meta, Results: results}
}

// ByRecommendation groups completed candidates by their recommendation.
func (r *Report) ByRecommendation() map[string][]*candidate.Record {
	grouped := make(map[string][]*candidate.Record)
	for _, rec := range r.Results {
		if rec.Result == nil {
			continue
		}
		grouped[rec.Result.Recommendation] = append(grouped[rec.Result.Recommendation], rec)
	}
	return grouped
}

// WriteFile serializes the report to the given path as indented JSON.
func (r *Report) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

// DumpToTmpFile writes the report to a temporary file and returns its name.
func (r *Report) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "resume_report_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}
