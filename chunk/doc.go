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

// Package chunk splits extracted document text into embedding-sized
// pieces that follow the document's own structure.
//
// Russian normative documents number their clauses ("5", "5.2", "5.2.1"),
// and the splitter uses those markers to build a hierarchy path for every
// chunk before falling back to a sentence-packing sliding window with
// overlap for unstructured text. Token budgets are enforced by a pluggable
// TokenCounter; a cheap rune heuristic is the default and a tiktoken-backed
// counter is available when exact model token counts matter.
package chunk
