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


package config

import "errors"

var (
	// ErrMissingValue is returned when a required setting is absent.
	ErrMissingValue = errors.New("missing required config value")

	// ErrInvalidValue is returned for a setting outside its valid range.
	ErrInvalidValue = errors.New("invalid config value")

	// ErrUnknownBackend is returned for an unrecognized index backend name.
	ErrUnknownBackend = errors.New("unknown index backend")
)
