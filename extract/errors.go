// Copyright 2026 Normindex Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadable indicates a corrupt or undecodable document.
	ErrUnreadable = errors.New("unreadable document")

	// ErrUnsupportedFormat indicates a mime type with no extraction strategy.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyDocument indicates no text could be recovered by any strategy.
	ErrEmptyDocument = errors.New("no extractable text")
)

// Reason classifies an extraction failure.
type Reason string

const (
	ReasonUnreadable  Reason = "unreadable"
	ReasonUnsupported Reason = "unsupported-format"
	ReasonEmpty       Reason = "empty"
)

// Error is a per-document extraction failure. It is fatal for the single
// document only; callers processing many documents isolate it and move on.
type Error struct {
	Reason Reason
	Path   string
	Err    error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("extract: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(reason Reason, path string, sentinel error, cause error) *Error {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &Error{Reason: reason, Path: path, Err: err}
}
