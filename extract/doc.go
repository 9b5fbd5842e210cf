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


// Package extract converts raw document bytes into plain text with
// structural hints.
//
// Extraction dispatches on mime type to a native strategy first (PDF text
// layer, DOCX/XLSX XML, plain text). When the recovered text falls below a
// configurable density threshold relative to page count, the document is
// retried through the optical recognition backend at a configurable DPI;
// the result carries an ExtractionMethod tag so downstream consumers can
// see which path produced it.
//
// All failures are per-document: a corrupt file yields an *Error with a
// Reason (unreadable, unsupported-format, empty) and must never abort a
// batch of other documents.
package extract
