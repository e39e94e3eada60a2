// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package audit implements the append-only, line-delimited transaction log
// the Remediation Executor writes on every state transition (spec §6.7).
// Entries are fsynced before the executor performs its next mutation, so a
// crash never loses a transition that already changed the working tree.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/athola/auditor/internal/model"
)

// Entry is one line of the audit log: a finding's state transition plus
// enough context to reconstruct what happened without reading the working
// tree (spec §6.7's field list).
type Entry struct {
	Timestamp        time.Time               `json:"timestamp"`
	FindingID        string                  `json:"finding_id"`
	State            model.RemediationState  `json:"state"`
	OperatorDecision string                  `json:"operator_decision,omitempty"`
	PreHash          string                  `json:"pre_hash,omitempty"`
	PostHash         string                  `json:"post_hash,omitempty"`
	VerifierOutcome  model.VerifierResult    `json:"verifier_outcome,omitempty"`
	Reason           string                  `json:"reason,omitempty"`
}

// Log is a single-writer, append-only JSON-lines file. The executor is the
// only writer within a session (spec §5's "Shared resources" rule).
type Log struct {
	path string
	file *os.File
}

// Open opens (creating if necessary) the audit log at path for appending.
// Every Write call is followed by an fsync before returning, so a crash
// immediately after a Write never loses that entry (spec §4.6's crash
// safety rule).
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) //nolint:gosec // audit log, not secret
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	return &Log{path: path, file: f}, nil
}

// Write appends entry as one JSON line and fsyncs the file.
func (l *Log) Write(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("fsyncing audit log: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	return l.file.Close()
}

// Path returns the file path this Log was opened with, so a caller can
// re-read it with ReadAll without threading the path separately.
func (l *Log) Path() string {
	return l.path
}

// ReadAll reads every entry from the audit log at path, in append order.
// Used for resuming an interrupted remediation session (spec §4.6, §4.7's
// crash-recovery path) and for operator inspection.
func ReadAll(path string) ([]Entry, error) {
	f, err := os.Open(path) //nolint:gosec // audit log path, operator-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("parsing audit log line: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning audit log: %w", err)
	}
	return entries, nil
}

// LastStateFor returns the most recent state transition recorded for
// findingID, and whether one was found. Used by the executor at startup to
// find in-flight transactions left in BACKED_UP or APPLIED state (spec
// §4.6's crash-safety rule).
func LastStateFor(entries []Entry, findingID string) (Entry, bool) {
	var last Entry
	found := false
	for _, e := range entries {
		if e.FindingID == findingID {
			last = e
			found = true
		}
	}
	return last, found
}
