// Copyright 2025.
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

package domain

// ExternalToolError reports a failed external command invocation: a
// non-zero exit, a timeout, a spawn failure, or unparseable structured
// output. It is produced at the command-executor boundary and converted
// into an OperationResult (or a defaulted value) before any public
// operation returns.
type ExternalToolError struct {
	Tool     string
	Message  string
	Details  string
	ExitCode int
	Timeout  bool
}

func (e *ExternalToolError) Error() string {
	return e.Message
}

// PermissionError is the synthetic rejection issued by the privilege
// gate before any external command runs.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	return e.Message
}
