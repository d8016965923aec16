package main

import (
	"time"

	"github.com/asdine/storm"
	"github.com/sirupsen/logrus"

	"github.com/CodedInternet/gorig/rig"
)

// RunRecord is one completed (or interrupted) experiment run.
type RunRecord struct {
	ID         int       `storm:"increment"` // pk
	StartedAt  time.Time `storm:"index"`
	DurationMS uint32
	Descriptor rig.TrajectoryDescriptor
	LastOutput float64
}

func openDb(dbFile string) (db *storm.DB, err error) {
	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	if err := db.Init(&User{}); err != nil {
		return nil, err
	}
	if err := db.Init(&RunRecord{}); err != nil {
		return nil, err
	}

	return
}

// saveRun persists a run summary; wired to Transport.OnRunEnd. Failures are
// logged, never escalated into the control path.
func saveRun(db *storm.DB, s rig.RunSummary) {
	rec := &RunRecord{
		StartedAt:  s.StartedAt,
		DurationMS: s.Duration,
		Descriptor: s.Descriptor,
		LastOutput: s.LastOutput,
	}
	if err := db.Save(rec); err != nil {
		logrus.WithError(err).Error("unable to persist run record")
	}
}
