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

// Package ingest runs documents through the indexing pipeline: extract,
// chunk, embed, compress, upsert.
//
// Each ingestion is a Job processing documents concurrently on a bounded
// worker pool. Failures are isolated per document: one unreadable scan
// does not abort the batch, it is reported in that document's outcome.
// Jobs are cancellable between pipeline stages, and any job that changes
// the index invalidates the query cache on completion.
package ingest
