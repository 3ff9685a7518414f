package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/mesocosm/mesocosm/internal/data"
)

// StepRecord is one telemetry row, written after every update pass.
type StepRecord struct {
	Step   int    `csv:"step"`
	Time   string `csv:"time"`
	WallMS int64  `csv:"wall_ms"`
	Writes int    `csv:"writes"`
}

// Telemetry streams step records to telemetry.csv.
type Telemetry struct {
	file          *os.File
	headerWritten bool
}

// NewTelemetry opens telemetry.csv in dir.
func NewTelemetry(dir string) (*Telemetry, error) {
	path := filepath.Join(dir, "telemetry.csv")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &PersistenceError{Path: path, Err: err}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Err: err}
	}
	return &Telemetry{file: file}, nil
}

// Write appends one row; the first write emits the header.
func (t *Telemetry) Write(rec StepRecord) error {
	if t == nil {
		return nil
	}
	rows := []StepRecord{rec}
	var err error
	if t.headerWritten {
		err = gocsv.MarshalWithoutHeaders(rows, t.file)
	} else {
		err = gocsv.Marshal(rows, t.file)
		t.headerWritten = true
	}
	if err != nil {
		return &PersistenceError{Path: t.file.Name(), Err: err}
	}
	return nil
}

// Close releases the file handle.
func (t *Telemetry) Close() error {
	if t == nil || t.file == nil {
		return nil
	}
	return t.file.Close()
}

// VariableRecord is one row of the end-of-run variable report.
type VariableRecord struct {
	Name       string  `csv:"name"`
	Unit       string  `csv:"unit"`
	Layers     int     `csv:"layers"`
	LastWriter string  `csv:"last_writer"`
	LastStep   int     `csv:"last_step"`
	Min        float64 `csv:"min"`
	Mean       float64 `csv:"mean"`
	Max        float64 `csv:"max"`
}

// WriteVariableReport dumps one row per written variable to variables.csv.
func WriteVariableReport(dir string, store *data.Store) error {
	records := make([]VariableRecord, 0, len(store.Names()))
	for _, name := range store.Names() {
		if !store.Written(name) {
			continue
		}
		values, v, prov, _ := store.Peek(name)
		min, mean, max := summarise(values)
		layerCount := 1
		if v.Layered {
			layerCount = store.Layers()
		}
		records = append(records, VariableRecord{
			Name:       name,
			Unit:       v.Unit,
			Layers:     layerCount,
			LastWriter: prov.LastWriter,
			LastStep:   prov.LastStep,
			Min:        min,
			Mean:       mean,
			Max:        max,
		})
	}
	path := filepath.Join(dir, "variables.csv")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	file, err := os.Create(path)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	defer file.Close()
	if err := gocsv.Marshal(records, file); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

// Manifest records the identity and outcome of a run.
type Manifest struct {
	RunID          string    `json:"run_id"`
	Status         string    `json:"status"`
	Steps          int       `json:"steps"`
	StepsCompleted int       `json:"steps_completed"`
	ConfigDigest   string    `json:"config_digest"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Error          string    `json:"error,omitempty"`
}

// NewRunID mints a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// WriteManifest writes run.json to dir.
func WriteManifest(dir string, m Manifest) error {
	path := filepath.Join(dir, "run.json")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}
