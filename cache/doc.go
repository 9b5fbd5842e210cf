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

// Package cache caches search responses keyed by normalized query plus
// search parameters, with a TTL on every entry.
//
// Two backends are provided: a BadgerDB backend whose entries carry
// native TTLs, suitable as a shared on-disk cache, and an in-process
// ristretto backend. QueryCache fronts a primary backend with an
// in-process fallback: when the primary becomes unreachable the cache
// degrades to the fallback with a logged warning instead of failing
// the query path. Index mutations invalidate the whole cache, trading
// precision for a guarantee that no stale hit survives a write.
package cache
