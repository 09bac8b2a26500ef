package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/orbitsim/internal/convergence"
)

// Store keeps convergence studies on disk, one directory per study holding
// metadata.json and errors.csv. Trajectories are never written.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type StudyMetadata struct {
	ID         string    `json:"id"`
	Scenario   string    `json:"scenario"`
	Integrator string    `json:"integrator"`
	Norm       string    `json:"norm"`
	Bodies     int       `json:"bodies"`
	Timestamp  time.Time `json:"timestamp"`
	FinalTime  float64   `json:"final_time"`
	BaselineDt float64   `json:"baseline_dt"`
	Order      float64   `json:"observed_order,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
}

var csvHeader = []string{"dt", "error", "horizon"}

// Save writes a study and returns its id. meta.ID and meta.Timestamp are
// filled in when empty.
func (s *Store) Save(meta StudyMetadata, points []convergence.Point) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%s_%d", meta.Scenario, meta.Integrator, meta.Timestamp.UnixNano())
	}
	for _, p := range points {
		for _, w := range p.Warnings {
			meta.Warnings = append(meta.Warnings, w.Error())
		}
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "errors.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.Dt, 'g', -1, 64),
			strconv.FormatFloat(p.Error, 'g', -1, 64),
			strconv.FormatFloat(p.Horizon, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns every readable study, oldest first.
func (s *Store) List() ([]StudyMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []StudyMetadata{}, nil
		}
		return nil, err
	}

	studies := make([]StudyMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		studies = append(studies, *meta)
	}

	sort.Slice(studies, func(i, j int) bool {
		return studies[i].Timestamp.Before(studies[j].Timestamp)
	})
	return studies, nil
}

func (s *Store) Load(id string) (*StudyMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta StudyMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("study %s: %w", id, err)
	}
	return &meta, nil
}

// LoadPoints reads back the (dt, error) table. Warnings are only kept in
// the metadata.
func (s *Store) LoadPoints(id string) ([]convergence.Point, error) {
	file, err := os.Open(filepath.Join(s.baseDir, id, "errors.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(csvHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("study %s: %w", id, err)
	}
	if len(records) < 2 {
		return []convergence.Point{}, nil
	}

	points := make([]convergence.Point, 0, len(records)-1)
	for i, record := range records[1:] {
		var vals [3]float64
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("study %s row %d: %w", id, i+1, err)
			}
			vals[j] = v
		}
		points = append(points, convergence.Point{Dt: vals[0], Error: vals[1], Horizon: vals[2]})
	}
	return points, nil
}
