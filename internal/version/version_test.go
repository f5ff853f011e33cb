/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package version

import "testing"

func TestStringIncludesCommit(t *testing.T) {
	if String() != Version {
		t.Fatalf("local build should report the bare version, got %q", String())
	}
	Commit = "abc1234"
	t.Cleanup(func() { Commit = "" })
	if want := Version + " (abc1234)"; String() != want {
		t.Fatalf("String() = %q, want %q", String(), want)
	}
}
