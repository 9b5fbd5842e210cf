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


// Package search answers semantic queries over the chunk index.
//
// The Searcher type embeds a normalized query, searches the vector
// store with the request's filters and score threshold, and boosts
// results that contain every significant query word verbatim. An
// optional query cache short-circuits repeated queries; cache keys
// incorporate the normalized query text and all request parameters.
package search
