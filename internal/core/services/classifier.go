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

package services

import "strings"

// failureCategory is the classifier's verdict on a failed operation.
type failureCategory int

const (
	categoryNone failureCategory = iota
	categoryCredential
)

type classificationRule struct {
	fragment string
	category failureCategory
}

// credentialRules are matched as case-insensitive substrings against the
// combined message and details of a failure. The set covers the RAS
// authentication error code and the English/German wording rasdial emits
// for credential, password, username, denial and timeout failures. The
// match is approximate on purpose: a false positive costs one harmless
// credential prompt, a false negative surfaces the raw failure.
var credentialRules = []classificationRule{
	{fragment: "error 691", category: categoryCredential},
	{fragment: "fehler 691", category: categoryCredential},
	{fragment: "credential", category: categoryCredential},
	{fragment: "anmeldeinformationen", category: categoryCredential},
	{fragment: "password", category: categoryCredential},
	{fragment: "kennwort", category: categoryCredential},
	{fragment: "username", category: categoryCredential},
	{fragment: "benutzername", category: categoryCredential},
	{fragment: "denied", category: categoryCredential},
	{fragment: "verweigert", category: categoryCredential},
	{fragment: "timed out", category: categoryCredential},
	{fragment: "zeitüberschreitung", category: categoryCredential},
}

// classifyFailure inspects a failure's message and diagnostic details and
// returns the first matching rule's category.
func classifyFailure(message, details string) failureCategory {
	combined := strings.ToLower(message + "\n" + details)
	for _, rule := range credentialRules {
		if strings.Contains(combined, rule.fragment) {
			return rule.category
		}
	}
	return categoryNone
}

const credentialHint = "Please connect once via Windows VPN settings and save credentials."

// appendCredentialHint adds the remediation hint to message when the
// failure classifies as credential-related.
func appendCredentialHint(message, details string) string {
	text := strings.TrimSpace(message)
	if classifyFailure(message, details) == categoryCredential {
		return text + " " + credentialHint
	}
	return text
}
