package dataset

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mediguard/vitals"
)

// Store keeps training samples and the training-run log in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the sample database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	query := `
    CREATE TABLE IF NOT EXISTS samples (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        label VARCHAR(32) NOT NULL,
        source VARCHAR(16) NOT NULL,
        features TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_version VARCHAR(64) NOT NULL,
        accuracy REAL,
        uncertain_precision REAL,
        sample_count INTEGER,
        synthetic_count INTEGER,
        trained_at DATETIME NOT NULL
    );
    `
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSamples writes a batch of samples in one transaction.
func (s *Store) InsertSamples(samples []vitals.TrainingSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO samples (label, source, features) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, sample := range samples {
		payload, err := json.Marshal(sample.Features)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(sample.Label.String(), string(sample.Source), string(payload)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadSamples reads every stored sample back in insertion order.
func (s *Store) LoadSamples() ([]vitals.TrainingSample, error) {
	rows, err := s.db.Query(`SELECT label, source, features FROM samples ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []vitals.TrainingSample
	for rows.Next() {
		var labelName, source, payload string
		if err := rows.Scan(&labelName, &source, &payload); err != nil {
			return nil, err
		}
		label, err := vitals.ParseLabel(labelName)
		if err != nil {
			return nil, fmt.Errorf("stored sample: %w", err)
		}
		var features vitals.FeatureVector
		if err := json.Unmarshal([]byte(payload), &features); err != nil {
			return nil, fmt.Errorf("stored sample features: %w", err)
		}
		if err := features.Validate(); err != nil {
			return nil, fmt.Errorf("stored sample: %w", err)
		}
		samples = append(samples, vitals.TrainingSample{
			Features: features,
			Label:    label,
			Source:   vitals.SampleSource(source),
		})
	}
	return samples, rows.Err()
}

// CountByLabel tallies stored samples per class, for stratification
// pre-checks before a training run.
func (s *Store) CountByLabel() (map[vitals.Label]int, error) {
	rows, err := s.db.Query(`SELECT label, COUNT(*) FROM samples GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[vitals.Label]int)
	for rows.Next() {
		var labelName string
		var count int
		if err := rows.Scan(&labelName, &count); err != nil {
			return nil, err
		}
		label, err := vitals.ParseLabel(labelName)
		if err != nil {
			return nil, err
		}
		counts[label] = count
	}
	return counts, rows.Err()
}

// TrainingRun is one row of the training-run log.
type TrainingRun struct {
	ModelVersion       string    `json:"model_version"`
	Accuracy           float64   `json:"accuracy"`
	UncertainPrecision float64   `json:"uncertain_precision"`
	SampleCount        int       `json:"sample_count"`
	SyntheticCount     int       `json:"synthetic_count"`
	TrainedAt          time.Time `json:"trained_at"`
}

// LogTrainingRun appends one run to the log.
func (s *Store) LogTrainingRun(run TrainingRun) error {
	_, err := s.db.Exec(`
        INSERT INTO training_runs (model_version, accuracy, uncertain_precision, sample_count, synthetic_count, trained_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		run.ModelVersion, run.Accuracy, run.UncertainPrecision, run.SampleCount, run.SyntheticCount, run.TrainedAt)
	return err
}

// TrainingRuns returns the run log, newest first.
func (s *Store) TrainingRuns() ([]TrainingRun, error) {
	rows, err := s.db.Query(`
        SELECT model_version, accuracy, uncertain_precision, sample_count, synthetic_count, trained_at
        FROM training_runs
        ORDER BY trained_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		var run TrainingRun
		if err := rows.Scan(&run.ModelVersion, &run.Accuracy, &run.UncertainPrecision,
			&run.SampleCount, &run.SyntheticCount, &run.TrainedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
