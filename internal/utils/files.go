/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package utils

import (
	"fmt"
	"strings"
)

// SanitizeFilename validates a client-supplied filename for use inside a
// session directory. Separators and parent references are rejected rather
// than stripped so callers cannot be confused about what was stored.
// Allowed characters: letters, digits, '.', '_', '-', ' '.
func SanitizeFilename(name string) (string, error) {
	base := strings.TrimSpace(name)
	if base == "" || base == "." || strings.Contains(base, "..") ||
		strings.ContainsAny(base, `/\`) {
		return "", fmt.Errorf("invalid filename: %q", name)
	}
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-' || r == ' ':
		default:
			return "", fmt.Errorf("invalid character %q in filename %q", r, name)
		}
	}
	return base, nil
}

// IsCSVFilename reports whether the name carries a .csv extension.
func IsCSVFilename(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}

// DefaultReportName names the markdown report artifact for a session.
func DefaultReportName(sessionID string) string {
	return fmt.Sprintf("report_%s.md", sessionID)
}
