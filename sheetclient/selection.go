// Package sheetclient holds the upload screen's state machine and the HTTP
// client it submits through.
//
//	Idle -> FileSelected -> Uploading -> Idle (success) | FileSelected (error)
//
// A file can be re-selected at any point. During Uploading the new choice is
// held as the pending file and submit stays disabled until the request ends.
package sheetclient

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const (
	MIMETypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMETypeXLS  = "application/vnd.ms-excel"

	MsgNotSpreadsheet = "Please upload an Excel spreadsheet (.xlsx or .xls)."
	MsgNoFile         = "Please select a spreadsheet first."
	MsgUploaded       = "Spreadsheet uploaded successfully."
)

var (
	ErrInFlight = errors.New("upload already in progress")
	ErrNoFile   = errors.New(MsgNoFile)
)

type Phase int

const (
	Idle Phase = iota
	FileSelected
	Uploading
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case FileSelected:
		return "file_selected"
	case Uploading:
		return "uploading"
	}
	return "unknown"
}

// Candidate is a file picked or dropped by the user.
type Candidate struct {
	Name     string
	MIMEType string
	Data     []byte
}

func (c Candidate) Size() int { return len(c.Data) }

// IsSpreadsheet reports whether c passes the loose client side check: an
// .xlsx/.xls name or an Excel MIME type.
func IsSpreadsheet(c Candidate) bool {
	name := strings.ToLower(c.Name)
	isXlsx := strings.HasSuffix(name, ".xlsx") || c.MIMEType == MIMETypeXLSX
	isXls := strings.HasSuffix(name, ".xls") || c.MIMEType == MIMETypeXLS
	return isXlsx || isXls
}

type uploader interface {
	Upload(ctx context.Context, cand Candidate) (*UploadResult, error)
}

// Snapshot is a point-in-time copy of a Selection. At most one of Error and
// Message is set.
type Snapshot struct {
	Phase   Phase
	File    *Candidate
	Error   string
	Message string
}

// Selection is the upload screen state. It is safe for concurrent use; only
// one submission can be in flight.
type Selection struct {
	mu      sync.Mutex
	phase   Phase
	file    *Candidate
	err     string
	message string
}

func (s *Selection) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Phase: s.phase, Error: s.err, Message: s.message}
	if s.file != nil {
		f := *s.file
		snap.File = &f
	}
	return snap
}

// AcceptFile clears any status text and selects cand if it looks like a
// spreadsheet. A rejected candidate also drops the previous selection. While
// an upload is in flight the phase stays Uploading.
func (s *Selection) AcceptFile(cand Candidate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = ""
	s.message = ""

	if !IsSpreadsheet(cand) {
		s.err = MsgNotSpreadsheet
		s.file = nil
		if s.phase != Uploading {
			s.phase = Idle
		}
		return false
	}

	s.file = &cand
	if s.phase != Uploading {
		s.phase = FileSelected
	}
	return true
}

func (s *Selection) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == Uploading {
		return
	}
	s.file = nil
	s.phase = Idle
}

// CanSubmit mirrors the enabled state of the submit control.
func (s *Selection) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == FileSelected
}

// Submit uploads the selected file through up. The returned error is also
// recorded as the user visible error; ErrInFlight leaves state untouched.
// A file accepted while the request was in flight stays selected afterwards.
func (s *Selection) Submit(ctx context.Context, up uploader) (*UploadResult, error) {
	s.mu.Lock()
	switch {
	case s.phase == Uploading:
		s.mu.Unlock()
		return nil, ErrInFlight
	case s.file == nil:
		s.err = MsgNoFile
		s.message = ""
		s.mu.Unlock()
		return nil, ErrNoFile
	}
	submitted := s.file
	s.err = ""
	s.message = ""
	s.phase = Uploading
	s.mu.Unlock()

	res, err := up.Upload(ctx, *submitted)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err.Error()
		s.message = ""
	} else {
		s.err = ""
		s.message = MsgUploaded
		if s.file == submitted {
			s.file = nil
		}
	}
	s.phase = Idle
	if s.file != nil {
		s.phase = FileSelected
	}
	return res, err
}
