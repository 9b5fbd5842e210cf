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

// Package store defines the vector index abstraction and the batched
// parallel upserter that feeds it.
//
// Two backends implement the VectorStore interface: an embedded BadgerDB
// index for single-node deployments and tests (subpackage badger), and a
// Qdrant HTTP client for shared deployments (subpackage qdrant). Both
// deduplicate by content-hash chunk ID, apply search filters before
// truncating to the result limit, and delete by document.
//
// The Upserter splits large entry sets into fixed-size batches and writes
// them through a bounded worker pool with per-batch retry, so one slow or
// failing batch does not stall or abort the rest.
package store
