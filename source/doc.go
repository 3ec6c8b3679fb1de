// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package source fetches monthly macroeconomic observations from JSON HTTP
// APIs, one call per time window, and extracts raw records from the response
// envelopes.
//
// The HTTP client is taken from the context as set up by
// github.com/stockparfait/fetch, which allows tests to substitute a local test
// server:
//
//	ctx = fetch.UseClient(ctx, server.Client())
//	f := source.NewFetcher("interest", endpoint, time.Second)
//	results, err := f.FetchAll(ctx, windows)
package source
